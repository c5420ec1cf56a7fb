package vectorstore

import (
	"errors"
	"fmt"
)

// 错误种类的封闭集合。调用方通过 errors.Is 对种类进行匹配，
// 而不是解析错误字符串。
var (
	// ErrConnection 表示后端不可达或连接参数缺失。本层不做重试。
	ErrConnection = errors.New("向量库连接失败")

	// ErrInvalidIdentifier 表示租户标识无法归一化为合法的表名。
	ErrInvalidIdentifier = errors.New("非法的租户标识")

	// ErrSchema 表示集合（表/索引）创建或校验失败。
	ErrSchema = errors.New("集合结构操作失败")

	// ErrWrite 表示写入或删除失败，事务已回滚，不存在半写状态。
	ErrWrite = errors.New("向量库写入失败")

	// ErrDimensionMismatch 表示向量维度与集合声明的维度不一致，
	// 在写入任何行之前即被拒绝。
	ErrDimensionMismatch = errors.New("向量维度不匹配")
)

// Error 将错误种类与底层原因绑定在一起。
// errors.Is 对种类哨兵和底层原因都成立。
type Error struct {
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Cause)
}

// Unwrap 同时暴露种类与原因，供 errors.Is/As 匹配。
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// wrapErr 用给定种类包装底层原因。
func wrapErr(kind, cause error) error {
	return &Error{Kind: kind, Cause: cause}
}

// wrapErrf 用给定种类包装一条格式化消息。
func wrapErrf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}
