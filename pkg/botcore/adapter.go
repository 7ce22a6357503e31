package botcore

// Adapter 将平台原始输入映射为标准 Update。
type Adapter[R any] interface {
	Normalize(raw R) (Update, error)
}

// AdapterFunc 允许直接以函数形式实现 Adapter。
type AdapterFunc[R any] func(raw R) (Update, error)

// Normalize 实现 Adapter 接口。
func (f AdapterFunc[R]) Normalize(raw R) (Update, error) {
	if f == nil {
		return Update{}, nil
	}
	return f(raw)
}
