// Package logger — вывод диагностики interrupt-timer с префиксом и учётом quiet.
// Метки времени событий печатаются в stdout через report, а не через logger.
package logger

import "log"

const prefix = "interrupt-timer: "

// Quiet при true отключает информационные сообщения (Info); Error выводится всегда.
var Quiet bool

// Info выводит сообщение с префиксом, если Quiet == false.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	log.Printf(prefix+format, args...)
}

// Error выводит сообщение об ошибке всегда.
func Error(format string, args ...interface{}) {
	log.Printf(prefix+format, args...)
}

// Fatal выводит сообщение и завершает процесс с кодом 1.
func Fatal(format string, args ...interface{}) {
	log.Fatalf(prefix+format, args...)
}
