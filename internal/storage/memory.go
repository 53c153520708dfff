package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Object is a file held by Memory.
type Object struct {
	Folder string
	Name   string
	Data   []byte
}

// Memory keeps uploads in process. Setting Err makes every upload fail;
// EmptyURL makes uploads report success with no URL, as a misbehaving
// provider would.
type Memory struct {
	mu       sync.Mutex
	objects  []Object
	Err      error
	EmptyURL bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Upload(ctx context.Context, f File, folder string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return "", uploadError("memory", m.Err)
	}

	data, err := io.ReadAll(f.Reader)
	if err != nil {
		return "", uploadError("memory", err)
	}

	m.objects = append(m.objects, Object{Folder: folder, Name: f.Name, Data: data})
	if m.EmptyURL {
		return "", nil
	}

	return fmt.Sprintf("https://media.test/%s/%d/%s", folder, len(m.objects), f.Name), nil
}

// Objects returns a copy of everything uploaded so far.
func (m *Memory) Objects() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Object, len(m.objects))
	copy(out, m.objects)
	return out
}

// Count is the number of stored objects.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
