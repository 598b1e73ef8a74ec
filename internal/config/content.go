package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	session "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

// Content 可选的面试内容文件，覆盖内置面试官与兜底脚本。
//
//	[[personas]]
//	id = "cindy-wong-en"
//	opening_cue = "Start the interview."
//
//	[scripts]
//	"en-US" = ["Hello...", "...", "Goodbye."]
type Content struct {
	Personas []persona.Persona   `toml:"personas"`
	Scripts  map[string][]string `toml:"scripts"`
}

// LoadContent reads a TOML content file. An empty path yields empty content.
func LoadContent(path string) (Content, error) {
	var c Content
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Content{}, fmt.Errorf("load content file %s: %w", path, err)
	}
	for i, p := range c.Personas {
		if strings.TrimSpace(p.ID) == "" {
			return Content{}, fmt.Errorf("content file %s: persona %d has no id", path, i)
		}
	}
	for lang, lines := range c.Scripts {
		if len(lines) < 2 {
			return Content{}, fmt.Errorf("content file %s: script %s needs at least a question and a closing line", path, lang)
		}
	}
	return c, nil
}

// Apply merges the content over the built-in personas and scripts.
func (c Content) Apply(personas *persona.MemoryStore, scripts session.StaticScripts) {
	if len(c.Personas) > 0 {
		personas.Merge(c.Personas)
	}
	for lang, lines := range c.Scripts {
		scripts[interview.ParseLanguage(lang)] = append([]string(nil), lines...)
	}
}
