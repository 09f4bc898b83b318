package room

import "math"

// 没有声明协议版本的旧客户端按版本 1 处理
const legacyProtocolVersion = 1

// resolveClientVersion 解析客户端声明的协议版本。
// JSON 数字解码后是 float64；只接受正整数，其余一律视为旧版本。
func resolveClientVersion(v interface{}) int {
	switch n := v.(type) {
	case float64:
		if n >= 1 && n <= math.MaxInt32 && n == math.Trunc(n) {
			return int(n)
		}
	case int:
		if n >= 1 {
			return n
		}
	}
	return legacyProtocolVersion
}

// isCompatible roomMin 为 0 表示房间还没有设置最低版本
func isCompatible(joinerVersion, roomMin int) bool {
	return roomMin == 0 || joinerVersion >= roomMin
}
