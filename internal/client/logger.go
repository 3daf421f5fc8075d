package client

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a logger writing into a rotated file, the terminal stays clean.
func NewLogger(filename string, debug bool) *logrus.Logger {
	formatter := new(logFormatter)

	logger := logrus.New()
	logger.SetOutput(io.Discard) // stdout & stderr to /dev/null
	logger.SetFormatter(formatter)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if filename == "" {
		return logger
	}

	logger.Hooks.Add(&fileHook{
		rotate: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    20, // megabytes
			MaxBackups: 2,
			MaxAge:     10, //days
		},
		formatter: formatter,
	})
	return logger
}

////////////////////
//                //
// File hook      //
//                //
////////////////////

type fileHook struct {
	sync.Mutex
	rotate    io.Writer
	formatter logrus.Formatter
}

// Fire writes the entry to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	// use our formatter instead of entry.String()
	msg, err := hook.formatter.Format(entry)
	if err != nil {
		log.Println("failed to generate string for entry:", err)
		return err
	}

	_, err = hook.rotate.Write(msg)
	return err
}

// Levels returns configured log levels.
func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

////////////////////
//                //
// Log formatter  //
//                //
////////////////////

type logFormatter struct{}

// Format implements Logrus formatter.
func (f *logFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fields := ""
	if len(entry.Data) > 0 {
		fs := []string{}
		for k, v := range entry.Data {
			fs = append(fs, fmt.Sprintf("%s=%v", k, v))
		}
		sort.Strings(fs)
		fields = fmt.Sprintf(" (%s)", strings.Join(fs, ", "))
	}

	data := fmt.Sprintf("[%s] %+5s: %s%s\n",
		entry.Time.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
		fields,
	)
	return []byte(data), nil
}
