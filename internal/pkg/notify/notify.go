package notify

// Notifier 定义通知接口。
type Notifier interface {
	// SendWelcome 向新注册用户发送欢迎邮件。
	//
	// 参数:
	//   toEmail: 接收邮箱
	//   fullName: 用户姓名
	SendWelcome(toEmail string, fullName string) error
}
