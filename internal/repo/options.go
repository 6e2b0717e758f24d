package repo

import "time"

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
