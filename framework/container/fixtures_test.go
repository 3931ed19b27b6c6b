package container_test

import (
	"errors"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type Logger interface {
	Log(msg string)
}

type FileLogger struct {
	Lines []string
}

func (l *FileLogger) Log(msg string) { l.Lines = append(l.Lines, msg) }

func NewFileLogger() *FileLogger { return &FileLogger{} }

type Mailer struct {
	Logger Logger
	Host   string
	Port   int
}

func NewMailer(logger Logger, host string, port int) *Mailer {
	return &Mailer{Logger: logger, Host: host, Port: port}
}

// Node depends on itself.
type Node struct {
	Parent *Node
}

func NewNode(parent *Node) *Node { return &Node{Parent: parent} }

type Chicken struct{ Egg *Egg }
type Egg struct{ Chicken *Chicken }

func NewChicken(egg *Egg) *Chicken     { return &Chicken{Egg: egg} }
func NewEgg(chicken *Chicken) *Egg     { return &Egg{Chicken: chicken} }
func NewBroken() (*FileLogger, error) { return nil, errBroken }

var errBroken = errors.New("disk full")

type Pool struct {
	Size    int8
	Workers uint
	Ratio   float32
}

func NewPool(size int8, workers uint, ratio float32) *Pool {
	return &Pool{Size: size, Workers: workers, Ratio: ratio}
}

func poolClass() *container.Class {
	return container.MustClass("Pool", NewPool,
		container.Arg("size").Or(4),
		container.Arg("workers").Or(1),
		container.Arg("ratio").Or(0.5),
	)
}

// poolError is an error implemented on a value type.
type poolError struct{ reason string }

func (e poolError) Error() string { return e.reason }

func mailerClass() *container.Class {
	return container.MustClass("Mailer", NewMailer,
		container.Dep("logger", "Logger"),
		container.Arg("host").Or("localhost"),
		container.Arg("port").Or(25),
	)
}

func loggerClass() *container.Class {
	return container.MustClass("FileLogger", NewFileLogger)
}

func counter(n *int) container.Factory {
	return func(_ container.Resolver, _ container.Params) (any, error) {
		*n++
		return &FileLogger{}, nil
	}
}
