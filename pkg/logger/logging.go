package logger

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var Log zerolog.Logger

func init() {
	// tests and tools get a usable logger without calling Init
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init configures the global logger to write to stdout and logs/server.log.
func Init() {
	logDir := "logs"
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		panic(err)
	}

	file, err := os.OpenFile(filepath.Join(logDir, "server.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(err)
	}

	multi := zerolog.MultiLevelWriter(os.Stdout, file)

	Log = zerolog.New(multi).With().Timestamp().Logger()
}
