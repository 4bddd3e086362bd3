// Package conversation хранит, что сейчас означает текст от пользователя
package conversation

import (
	"errors"
	"regexp"
	"strings"
	"sync"
)

type State string

const (
	StateNone                 State = ""
	StateAwaitingAPIKey       State = "awaiting_api_key"
	StateAwaitingFileToDelete State = "awaiting_file_to_delete"
)

var ErrInvalidKey = errors.New("invalid api key format")

var apiKeyPattern = regexp.MustCompile(`^[a-z0-9_]+\.[a-f0-9]+\.[a-f0-9]+$`)

// ValidAPIKey проверяет только форму ключа, не его подлинность
func ValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// NormalizeAPIKey снимает один завершающий перевод строки, остальное сверяется как есть
func NormalizeAPIKey(key string) string {
	return strings.TrimSuffix(key, "\n")
}

// ParseAPIKey проверяет форму ключа; пробелы вокруг ключа делают его невалидным
func ParseAPIKey(text string) (string, error) {
	key := NormalizeAPIKey(text)
	if !ValidAPIKey(key) {
		return "", ErrInvalidKey
	}
	return key, nil
}

// Store потокобезопасная карта состояний.
// Отсутствие записи означает StateNone.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID]
}

// Set сохраняет состояние; StateNone удаляет запись
func (s *Store) Set(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == StateNone {
		delete(s.states, userID)
		return
	}
	s.states[userID] = state
}

func (s *Store) Reset(userID int64) {
	s.Set(userID, StateNone)
}

// Len число пользователей не в StateNone
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
