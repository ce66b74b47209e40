package iocli

//go:generate moq -out io_mock.go . IO

// IO is the operator terminal
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	// IsTerminal сообщает, подключен ли ввод к терминалу (можно ли спросить подтверждение)
	IsTerminal() bool
	Write(p []byte) (n int, err error)
}
