// Copyright (c) 2025 CaptainASIC
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/CaptainASIC/FusionLoom/internal/model"
)

// SearchHistory returns the sessions of p whose name or any message content
// contains query, ignoring case. A blank query returns the full history.
func (s *Store) SearchHistory(p model.Provider, query string) Collection {
	all := s.GetHistory(p)
	if strings.TrimSpace(query) == "" {
		return all
	}

	// Casers carry state; one per search.
	fold := cases.Fold()
	needle := fold.String(query)

	results := make(Collection)
	for id, sess := range all {
		if matches(sess, needle, fold) {
			results[id] = sess
		}
	}
	return results
}

func matches(sess *model.ChatSession, needle string, fold cases.Caser) bool {
	if strings.Contains(fold.String(sess.Name), needle) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(fold.String(msg.Content), needle) {
			return true
		}
	}
	return false
}
