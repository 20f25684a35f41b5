package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	defaultBaseURL       = "http://localhost:8000"
	defaultDialTimeout   = 10 * time.Second
	defaultJumpThreshold = 3
	defaultHistoryLimit  = 500
	defaultMarkdownStyle = "dark"
	defaultLogLevel      = "info"
	defaultLogFile       = "cardchat.log"
	defaultStubAddr      = "127.0.0.1:8000"
	defaultMaxPanelRatio = 0.9
	defaultChatMinWidth  = 30
	defaultChatMinHeight = 10
	defaultChatWidth     = 60
	defaultChatHeight    = 22
	defaultCardWidth     = 40
	defaultCardHeight    = 10
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     defaultBaseURL,
			DialTimeout: defaultDialTimeout,
		},
		UI: UIConfig{
			Chat: ChatConfig{
				MinWidth:       defaultChatMinWidth,
				MinHeight:      defaultChatMinHeight,
				InitialWidth:   defaultChatWidth,
				InitialHeight:  defaultChatHeight,
				MaxWidthRatio:  defaultMaxPanelRatio,
				MaxHeightRatio: defaultMaxPanelRatio,
			},
			Card: CardConfig{
				Width:    defaultCardWidth,
				Height:   defaultCardHeight,
				Editable: true,
			},
			JumpThreshold: defaultJumpThreshold,
			HistoryLimit:  defaultHistoryLimit,
			MarkdownStyle: defaultMarkdownStyle,
		},
		Log: LogConfig{
			Enabled: true,
			Level:   defaultLogLevel,
			File:    defaultLogFile,
		},
		Stub: StubConfig{
			Addr: defaultStubAddr,
		},
	}
}

// setDefaults registers every key with viper so env overrides apply even
// when the file does not mention them.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.dial_timeout", d.Backend.DialTimeout)
	v.SetDefault("backend.request_timeout", d.Backend.RequestTimeout)

	v.SetDefault("ui.chat.min_width", d.UI.Chat.MinWidth)
	v.SetDefault("ui.chat.min_height", d.UI.Chat.MinHeight)
	v.SetDefault("ui.chat.initial_width", d.UI.Chat.InitialWidth)
	v.SetDefault("ui.chat.initial_height", d.UI.Chat.InitialHeight)
	v.SetDefault("ui.chat.max_width_ratio", d.UI.Chat.MaxWidthRatio)
	v.SetDefault("ui.chat.max_height_ratio", d.UI.Chat.MaxHeightRatio)
	v.SetDefault("ui.card.width", d.UI.Card.Width)
	v.SetDefault("ui.card.height", d.UI.Card.Height)
	v.SetDefault("ui.card.editable", d.UI.Card.Editable)
	v.SetDefault("ui.jump_threshold", d.UI.JumpThreshold)
	v.SetDefault("ui.history_limit", d.UI.HistoryLimit)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)

	v.SetDefault("log.enabled", d.Log.Enabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("stub.addr", d.Stub.Addr)
	v.SetDefault("stub.script", d.Stub.Script)
}
