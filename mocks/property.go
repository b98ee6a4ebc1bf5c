package mocks

import (
	"context"
	"encoding/json"
	"sync"
)

// Properties stores values as json like the sql property store.
type Properties struct {
	mux    sync.Mutex
	values map[string][]byte
}

func NewProperties() *Properties {
	return &Properties{values: map[string][]byte{}}
}

func (s *Properties) Get(_ context.Context, key string, value any) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	raw, ok := s.values[key]
	if !ok {
		return nil
	}

	return json.Unmarshal(raw, value)
}

func (s *Properties) Set(_ context.Context, key string, value any) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.values[key] = raw
	return nil
}
