// Package iocli абстрагирует терминальный ввод-вывод консольного
// клиента, чтобы команды можно было тестировать со скриптованным
// вводом и перехваченным выводом.
package iocli

//go:generate moq -out io_mock.go . IO

// IO терминальный ввод-вывод команд.
// Write нужен потоковому выводу чата: фрагменты ответа печатаются
// по мере прихода, без буферизации построчно.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
