package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/castpost/castpost/internal/core"
)

// Document is the top-level structure of a castpost.yaml file.
type Document struct {
	Workflow Workflow `yaml:"workflow"`
}

// Workflow describes what a run does: which channels to pull from, when
// to trigger, and where the result is delivered.
type Workflow struct {
	Name     string          `yaml:"name"`
	Trigger  *CronTrigger    `yaml:"trigger,omitempty"`
	Channels []ChannelConfig `yaml:"channels"`
	Download DownloadConfig  `yaml:"download,omitempty"`
	Email    EmailOutput     `yaml:"email"`
}

// CronTrigger defines a scheduled trigger.
type CronTrigger struct {
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone,omitempty"`
}

// ChannelConfig configures one item source. Lister selects the listing
// strategy: "feed" (uploads Atom feed, the default) or "playlist"
// (uploads playlist via yt-dlp).
type ChannelConfig struct {
	Handle      string `yaml:"handle"`
	Name        string `yaml:"name,omitempty"`
	Lister      string `yaml:"lister,omitempty"`
	Filter      string `yaml:"filter,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
	MaxAttempts int    `yaml:"max_attempts,omitempty"`
}

// Channel converts the configuration entry to the core identity.
func (c ChannelConfig) Channel() core.Channel {
	return core.Channel{Handle: c.Handle, Name: c.Name}
}

// DownloadConfig controls where artifacts land.
type DownloadConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// EmailOutput configures delivery addressing. SMTP transport settings
// come from the environment, not the document.
type EmailOutput struct {
	To   string `yaml:"to"`
	From string `yaml:"from,omitempty"`
}

const (
	ListerFeed     = "feed"
	ListerPlaylist = "playlist"

	defaultDownloadDir = "./downloads"
)

// LoadDocument reads and validates a workflow document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow document %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow document %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects documents the orchestrator cannot run. A document
// without channels is the one unrecoverable configuration error: there
// is no unit of work to isolate a failure to.
func (d *Document) Validate() error {
	if len(d.Workflow.Channels) == 0 {
		return fmt.Errorf("workflow has no channels configured")
	}
	for i, channel := range d.Workflow.Channels {
		if channel.Handle == "" {
			return fmt.Errorf("channel %d: handle is required", i)
		}
		switch channel.Lister {
		case "", ListerFeed, ListerPlaylist:
		default:
			return fmt.Errorf("channel %s: unknown lister %q (expected %s or %s)",
				channel.Handle, channel.Lister, ListerFeed, ListerPlaylist)
		}
		if channel.MaxAttempts < 0 {
			return fmt.Errorf("channel %s: max_attempts must be >= 0", channel.Handle)
		}
	}
	if d.Workflow.Email.To == "" {
		return fmt.Errorf("email recipient is required")
	}
	if d.Workflow.Trigger != nil && d.Workflow.Trigger.Schedule == "" {
		return fmt.Errorf("trigger schedule is required when a trigger is configured")
	}
	return nil
}

// DownloadDir returns the configured artifact directory or the default.
func (d *Document) DownloadDir() string {
	if d.Workflow.Download.Dir != "" {
		return d.Workflow.Download.Dir
	}
	return defaultDownloadDir
}
