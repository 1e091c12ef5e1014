package main

import (
	"log"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"skillswap/internal/stub"
)

type config struct {
	Addr      string `env:"STUB_ADDR" envDefault:":8000"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	server := stub.New(cfg.JWTSecret)
	log.Printf("🚀 Stub backend listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.Fatal(err)
	}
}
