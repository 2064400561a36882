package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir - стандартный путь Docker Secrets.
const DefaultSecretsDir = "/run/secrets"

// SecretsDir возвращает каталог секретов (SECRETS_DIR или путь по умолчанию).
func SecretsDir() string {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return dir
	}
	return DefaultSecretsDir
}

// SecretReader читает секреты из файлов каталога с откатом на переменные окружения.
type SecretReader struct {
	dir    string
	lookup func(string) (string, bool)
}

// NewSecretReader создает читателя секретов для каталога dir.
func NewSecretReader(dir string) *SecretReader {
	return &SecretReader{dir: dir, lookup: os.LookupEnv}
}

// ReadFile читает секрет из файла. Пустой файл считается отсутствующим.
func (r *SecretReader) ReadFile(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Read возвращает секрет из файла name, а если его нет - значение переменной envKey.
func (r *SecretReader) Read(name, envKey string) string {
	if v, err := r.ReadFile(name); err == nil && v != "" {
		return v
	}
	if v, ok := r.lookup(envKey); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
