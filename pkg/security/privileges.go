package security

import (
	"os"
	"os/user"
	"runtime"
)

// IsAdmin сообщает, запущен ли процесс от root или администратора Windows.
func IsAdmin() bool {
	if runtime.GOOS == "windows" {
		// открыть физический диск может только администратор
		f, err := os.Open(`\\.\PHYSICALDRIVE0`)
		if err != nil {
			return false
		}
		f.Close()
		return true
	}
	return os.Geteuid() == 0
}

// CurrentUser возвращает имя пользователя процесса для аудита
func CurrentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, env := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(env); name != "" {
			return name
		}
	}
	return "unknown"
}
