package main

import "time"

type Config struct {
	Host              string        `env:"HOST,default=127.0.0.1"`
	Port              int           `env:"PORT,default=4200"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	SinkBufferSize    int           `env:"SINK_BUFFER_SIZE,default=64"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	CookieKey         string        `env:"COOKIE_KEY,required=true"`
	DefaultChannels   string        `env:"DEFAULT_CHANNELS,default=RED;BLUE;BROWN"`
	AdminUser         string        `env:"ADMIN_USER,default=admin"`
	AdminPassword     string        `env:"ADMIN_PASSWORD,required=true"`
	DebugPort         int           `env:"DEBUG_PORT,default=0"`
}
