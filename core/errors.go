package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - Registry 错误：UNKNOWN_IDENTIFIER
//   - 配置错误：INVALID_CONFIGURATION（在任何切分工作之前快速失败）
//   - 数据不足：INSUFFICIENT_DATA / INSUFFICIENT_NEGATIVES（软错误，只记录不中断）
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "UNKNOWN_IDENTIFIER"）
	Message string // 错误消息
	Module  string // 模块名称（如 "registry", "split", "sample"）
	Cause   error  // 可选的底层错误
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Module + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Module + ": " + e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound              = "NOT_FOUND"              // 资源不存在
	ErrorCodeInvalidInput          = "INVALID_INPUT"          // 输入无效
	ErrorCodeUnknownIdentifier     = "UNKNOWN_IDENTIFIER"     // 物品标识或 id 未注册
	ErrorCodeInvalidConfiguration  = "INVALID_CONFIGURATION"  // 配置非法
	ErrorCodeInsufficientData      = "INSUFFICIENT_DATA"      // 用户正样本不足（软错误）
	ErrorCodeInsufficientNegatives = "INSUFFICIENT_NEGATIVES" // 候选池不足以产生所需负样本（软错误）
)

// 模块名称常量
const (
	ModuleRegistry  = "registry"
	ModulePartition = "partition"
	ModuleSplit     = "split"
	ModuleSample    = "sample"
	ModuleDataset   = "dataset"
	ModuleStore     = "store"
	ModuleConfig    = "config"
	ModuleIngest    = "ingest"
	ModulePersist   = "persist"
	ModuleFilter    = "filter"
	ModulePipeline  = "pipeline"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsUnknownIdentifier 检查错误是否为 UNKNOWN_IDENTIFIER
func IsUnknownIdentifier(err error) bool { return hasCode(err, ErrorCodeUnknownIdentifier) }

// IsInvalidConfiguration 检查错误是否为 INVALID_CONFIGURATION
func IsInvalidConfiguration(err error) bool { return hasCode(err, ErrorCodeInvalidConfiguration) }

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool { return hasCode(err, ErrorCodeInsufficientData) }

// IsInsufficientNegatives 检查错误是否为 INSUFFICIENT_NEGATIVES
func IsInsufficientNegatives(err error) bool { return hasCode(err, ErrorCodeInsufficientNegatives) }

// ErrStoreNotFound 表示 key 不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "key not found")
