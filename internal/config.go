package internal

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	CacheTTL          time.Duration `env:"CACHE_TTL,default=1h"`
	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	BannedWordsPath   string        `env:"BANNED_WORDS_PATH"`
	CensoredChar      string        `env:"CENSORED_CHARACTER,default=*"`
}

// LoadBannedWords reads the optional banned word list, one word per
// whitespace-separated token. No path means no moderation.
func LoadBannedWords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}

// CensoredRune extracts the single replacement character from config.
func CensoredRune(s string) rune {
	runes := []rune(s)
	if len(runes) != 1 {
		return '*'
	}
	return runes[0]
}
