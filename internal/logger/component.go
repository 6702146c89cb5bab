package logger

import (
	"fmt"
	"log/slog"
)

// Component is a logger bound to one subsystem. It resolves the process
// logger on every call so SetOutput and SetFormat apply to it as well.
type Component struct {
	name  string
	attrs []any
}

func Named(name string) *Component {
	return &Component{name: name}
}

// With returns a copy carrying extra key/value attributes.
func (c *Component) With(args ...any) *Component {
	attrs := make([]any, 0, len(c.attrs)+len(args))
	attrs = append(attrs, c.attrs...)
	attrs = append(attrs, args...)
	return &Component{name: c.name, attrs: attrs}
}

func (c *Component) logger() *slog.Logger {
	l := base().With("component", c.name)
	if len(c.attrs) > 0 {
		l = l.With(c.attrs...)
	}
	return l
}

func (c *Component) Debugf(format string, v ...any) {
	c.logger().Debug(fmt.Sprintf(format, v...))
}

func (c *Component) Infof(format string, v ...any) {
	c.logger().Info(fmt.Sprintf(format, v...))
}

func (c *Component) Warnf(format string, v ...any) {
	c.logger().Warn(fmt.Sprintf(format, v...))
}

func (c *Component) Errorf(format string, v ...any) {
	c.logger().Error(fmt.Sprintf(format, v...))
}
