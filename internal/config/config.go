package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string
	DatabaseURL       string
	JWTSecret         string
	AdminUser         string
	AdminPasswordHash string
	MetricsUser       string
	MetricsPassword   string

	// Subscription plans offered by the presentation layer, index-aligned.
	PlanDays   []int
	PlanPrices []int
	PlanStars  []int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		MetricsUser:       getEnv("METRICS_USER", "metrics"),
		MetricsPassword:   os.Getenv("METRICS_PASSWORD"),
		PlanDays:          intList(getEnv("SUBSCRIPTION_DAYS", "30,90,365")),
		PlanPrices:        intList(getEnv("SUBSCRIPTION_PRICES", "100,300,500")),
		PlanStars:         intList(getEnv("SUBSCRIPTION_STARS", "50,150,250")),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intList(raw string) []int {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			log.Printf("Warning: skipping bad value %q in plan list", part)
			continue
		}
		out = append(out, n)
	}
	return out
}
