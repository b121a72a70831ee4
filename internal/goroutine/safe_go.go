package goroutine

import (
	"runtime/debug"

	"github.com/civicmirror/civic-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Используется для побочных
// эффектов вида "выстрелил и забыл" (SMS, рассылка в чат), падение которых
// не должно ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		if logger.Log != nil {
			logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
		}
	}
}
