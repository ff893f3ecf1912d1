package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const fallbackEncoding = "cl100k_base"

var loaderOnce sync.Once

// Counter counts tokens for one model. When no encoding can be loaded it
// estimates one token per four bytes.
type Counter struct {
	enc *tiktoken.Tiktoken
}

func NewCounter(modelName string) *Counter {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			enc = nil
		}
	}
	return &Counter{enc: enc}
}

// Exact reports whether counts come from a real tokenizer.
func (c *Counter) Exact() bool {
	return c.enc != nil
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate is ceil(len(bytes)/4).
func Estimate(text string) int {
	return (len(text) + 3) / 4
}

var contextWindows = []struct {
	prefix string
	window int
}{
	{"gpt-4-32k", 32768},
	{"gpt-4-turbo", 128000},
	{"gpt-4o", 128000},
	{"gpt-4", 8192},
	{"gpt-3.5-turbo-16k", 16384},
	{"gpt-3.5-turbo", 4096},
}

// ContextWindow returns the total token window for a model name.
// Unknown models get 8192.
func ContextWindow(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	for _, w := range contextWindows {
		if strings.HasPrefix(name, w.prefix) {
			return w.window
		}
	}
	return 8192
}
