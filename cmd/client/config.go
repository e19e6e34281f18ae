package main

type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:4200"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}
