package contract

import "errors"

// 最小错误分类（哨兵；分类逻辑见 internal/diag.Classify）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvalidInput: 调用方输入非法（空目标、越界偏移等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrPartMalformed: 包内部件缺失或结构损坏（半注册的部件比没有更糟，
	// 命中即整批批注路径中止）。
	ErrPartMalformed = errors.New("part malformed")
	// ErrRiskTooHigh: 预检风险为 high 且调用方要求设闸。
	ErrRiskTooHigh = errors.New("preflight risk too high")
)
