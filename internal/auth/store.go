// auth — внешний коллаборатор поиска: хранение токена и проверки доступа.
// Остальные компоненты видят только IsAuthenticated и источник токена.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// FileStore — токен, переживающий перезапуск процесса (JSON-файл с правами 0600).
type FileStore struct {
	path string

	mu     sync.RWMutex
	loaded bool
	token  models.Token
}

// NewFileStore создаёт хранилище; файл читается лениво при первом обращении.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Token — текущий токен доступа, если он есть.
func (s *FileStore) Token() (string, bool) {
	s.mu.RLock()
	if s.loaded {
		tok := s.token.AccessToken
		s.mu.RUnlock()
		return tok, tok != ""
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		// Битый или отсутствующий файл означает "не авторизован".
		s.token, _ = s.read()
		s.loaded = true
	}

	return s.token.AccessToken, s.token.AccessToken != ""
}

// Save записывает токен атомарно: во временный файл и rename.
func (s *FileStore) Save(tok models.Token) error {
	const op = "internal/auth/store/Save"

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%s: mkdir: %w", op, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: rename: %w", op, err)
	}

	s.token = tok
	s.loaded = true
	return nil
}

// Clear удаляет токен. Отсутствие файла — не ошибка.
func (s *FileStore) Clear() error {
	const op = "internal/auth/store/Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = models.Token{}
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *FileStore) read() (models.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.Token{}, err
	}

	var tok models.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return models.Token{}, err
	}

	return tok, nil
}
