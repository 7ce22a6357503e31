package botcore

// Emitter 将流水线产生的片段编码为平台下行消息。
type Emitter[T any] interface {
	Encode(update Update, streamID string, chunk StreamChunk) (T, error)
}

// EmitterFunc 允许直接用函数实现。
type EmitterFunc[T any] func(update Update, streamID string, chunk StreamChunk) (T, error)

// Encode 实现 Emitter 接口。
func (f EmitterFunc[T]) Encode(update Update, streamID string, chunk StreamChunk) (T, error) {
	if f == nil {
		var zero T
		return zero, nil
	}
	return f(update, streamID, chunk)
}
