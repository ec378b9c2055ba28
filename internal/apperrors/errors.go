package apperrors

import "errors"

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidInput      = 1001
	ErrCodeLobbyNotFound     = 2001
	ErrCodeLobbyFull         = 2002
	ErrCodeNotInLobby        = 2003
	ErrCodeGameInProgress    = 2004
	ErrCodeDuplicatePlayer   = 2005
	ErrCodeNotEnoughPlayers  = 2006
	ErrCodeUnknownSetting    = 3001
	ErrCodeSettingOutOfRange = 3002
	ErrCodeInvalidTaskIndex  = 3003
	ErrCodeSabotageActive    = 3004
	ErrCodeCodeExhausted     = 5001
	ErrCodeNilTask           = 5002
	ErrCodeSchedulerClosed   = 5003
	ErrCodeForcedShutdown    = 5004
	ErrCodeQueueFull         = 5005
)

// Kind 错误分类
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindCapacity
	KindConflict
	KindResourceExhaustion
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindConflict:
		return "conflict"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// GameError 游戏错误（大厅、注册表与调度器共享）
type GameError struct {
	Code    int
	Kind    Kind
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrInvalidInput            = &GameError{Code: ErrCodeInvalidInput, Kind: KindValidation, Message: "参数无效"}
	ErrLobbyNotFound           = &GameError{Code: ErrCodeLobbyNotFound, Kind: KindNotFound, Message: "大厅不存在"}
	ErrNotInLobby              = &GameError{Code: ErrCodeNotInLobby, Kind: KindNotFound, Message: "您不在大厅中"}
	ErrLobbyFull               = &GameError{Code: ErrCodeLobbyFull, Kind: KindCapacity, Message: "大厅已满"}
	ErrGameInProgress          = &GameError{Code: ErrCodeGameInProgress, Kind: KindCapacity, Message: "游戏已开始"}
	ErrDuplicatePlayer         = &GameError{Code: ErrCodeDuplicatePlayer, Kind: KindConflict, Message: "玩家已在大厅中"}
	ErrNotEnoughPlayers        = &GameError{Code: ErrCodeNotEnoughPlayers, Kind: KindValidation, Message: "玩家人数不足"}
	ErrUnknownSetting          = &GameError{Code: ErrCodeUnknownSetting, Kind: KindValidation, Message: "未知的设置项"}
	ErrSettingOutOfRange       = &GameError{Code: ErrCodeSettingOutOfRange, Kind: KindValidation, Message: "设置值超出范围"}
	ErrInvalidTaskIndex        = &GameError{Code: ErrCodeInvalidTaskIndex, Kind: KindValidation, Message: "任务编号无效"}
	ErrSabotageActive          = &GameError{Code: ErrCodeSabotageActive, Kind: KindConflict, Message: "破坏正在进行中"}
	ErrCodeGenerationExhausted = &GameError{Code: ErrCodeCodeExhausted, Kind: KindResourceExhaustion, Message: "无法生成唯一的大厅代码"}
	ErrNilTask                 = &GameError{Code: ErrCodeNilTask, Kind: KindValidation, Message: "任务不能为空"}
	ErrSchedulerClosed         = &GameError{Code: ErrCodeSchedulerClosed, Kind: KindClosed, Message: "调度器正在关闭"}
	ErrForcedShutdown          = &GameError{Code: ErrCodeForcedShutdown, Kind: KindResourceExhaustion, Message: "调度器强制关闭"}
	ErrQueueFull               = &GameError{Code: ErrCodeQueueFull, Kind: KindResourceExhaustion, Message: "调度队列已满"}
)

// KindOf 返回错误链上第一个 GameError 的分类
func KindOf(err error) Kind {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
