// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CaptainASIC/FusionLoom/internal/export"
	"github.com/CaptainASIC/FusionLoom/internal/logger"
	"github.com/CaptainASIC/FusionLoom/internal/provider"
)

// ExportActive renders the active session in format ("" means markdown).
// The history store is not touched.
func (c *Controller) ExportActive(format string) (*export.Artifact, error) {
	exporter, err := export.NewExporter(format, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	sess := c.session.Clone()
	p := c.provider
	c.mu.Unlock()

	doc, err := export.NewDocument(sess, p, c.now())
	if err != nil {
		return nil, err
	}
	return export.Render(doc, exporter)
}

// AttachFile appends an attachment marker for path to input. The file must
// exist; its content is not read.
func (c *Controller) AttachFile(input, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.notifier.Notify(Notification{Type: NotifyError, Message: fmt.Sprintf("Error attaching file: %v", err)})
		return input, err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory", path)
		c.notifier.Notify(Notification{Type: NotifyError, Message: "Error attaching file: " + err.Error()})
		return input, err
	}

	name := filepath.Base(path)
	marker := fmt.Sprintf("[Attached file: %s]", name)
	if input != "" {
		input += "\n"
	}
	c.notifier.Notify(Notification{Type: NotifySuccess, Message: "File attached: " + name})
	return input + marker, nil
}

// adapter returns the adapter of the bound provider.
func (c *Controller) adapter() (provider.Adapter, error) {
	c.mu.Lock()
	p := c.provider
	initialized := c.state != StateUninitialized
	c.mu.Unlock()
	if !initialized {
		return nil, ErrNotInitialized
	}
	return c.adapters.Get(p)
}

// ListModels returns the models the bound provider offers.
func (c *Controller) ListModels(ctx context.Context) ([]string, error) {
	a, err := c.adapter()
	if err != nil {
		return nil, err
	}
	return a.ListModels(ctx)
}

// Available probes the bound provider.
func (c *Controller) Available(ctx context.Context) bool {
	a, err := c.adapter()
	if err != nil {
		return false
	}
	return a.IsAvailable(ctx)
}

// PullModel downloads name through the bound provider, reporting progress
// as notifications.
func (c *Controller) PullModel(ctx context.Context, name string) error {
	a, err := c.adapter()
	if err != nil {
		return err
	}
	puller, ok := provider.AsPuller(a)
	if !ok {
		return fmt.Errorf("%s does not support pulling models", a.Name().DisplayName())
	}

	c.notifier.Notify(Notification{Type: NotifyInfo, Message: fmt.Sprintf("Pulling model: %s...", name)})
	if err := puller.Pull(ctx, name); err != nil {
		logger.Log.Errorf("pull %s: %v", name, err)
		c.notifier.Notify(Notification{Type: NotifyError, Message: fmt.Sprintf("Error pulling model: %v", err)})
		return err
	}
	c.notifier.Notify(Notification{Type: NotifySuccess, Message: fmt.Sprintf("Successfully pulled model: %s", name)})
	return nil
}
