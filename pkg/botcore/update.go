package botcore

// Update 描述一次标准化的用户输入事件。
type Update struct {
	ID       string            // 事件唯一 ID
	SenderID string            // 触发方标识（Web 平台为浏览器客户端 ID）
	ChatID   string            // 会话 ID，决定读写哪一份聊天历史
	Text     string            // 文本内容
	Metadata map[string]string // 扩展键值，如平台、远端地址等
}

// CloneMetadata 返回一份 Metadata 拷贝，防止 Handler 意外修改底层数据。
func (u Update) CloneMetadata() map[string]string {
	if len(u.Metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(u.Metadata))
	for k, v := range u.Metadata {
		out[k] = v
	}
	return out
}
