/*
DESCRIPTION
  Ops email notifier.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

// Package notify implements the email channel used to alert
// operators about service degradation, such as repeated dispatch
// failures. It is unrelated to the resident-facing neighborhood
// notifications, which are datastore records fanned out by the
// dispatch package.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mailjet "github.com/mailjet/mailjet-apiv3-go"
)

const (
	defaultSender    = "service@neutro.app"
	defaultRecipient = "ops@neutro.app"
	defaultPeriod    = 60 * time.Minute
)

// Kind distinguishes kinds of ops notifications for filtering and
// throttling purposes.
type Kind string

// Notification kinds.
const (
	Dispatch Kind = "dispatch" // Problems fanning out neighborhood notifications.
	Health   Kind = "health"   // Problems with the services themselves.
)

// Notifier represents a notifier that uses the MailJet API to send
// email.
type Notifier struct {
	mutex      sync.Mutex // Lock access.
	sender     string     // Sender email address.
	recipients []string   // Recipient email addresses.
	period     time.Duration
	store      TimeStore // Notification store (optional).
	filters    []string  // Message filters (optional).
	publicKey  string    // Public key for accessing MailJet API.
	privateKey string    // Private key for accessing MailJet API.
}

// Init initializes a notifier with the supplied options. See
// WithSender, WithRecipient, WithFilter, WithStore, WithPeriod and
// WithSecrets for a description of the various options. Secrets are
// required to send actual emails using the MailJet API, but can be
// omitted during testing. It is permissible to re-initialize a
// Notifier with different options, however missing options will
// revert to their defaults.
func (n *Notifier) Init(options ...Option) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	// Set default values.
	n.sender = defaultSender
	n.recipients = []string{defaultRecipient}
	n.period = defaultPeriod
	n.store = nil
	n.filters = nil
	n.publicKey = ""
	n.privateKey = ""

	// Apply options.
	for i, opt := range options {
		err := opt(n)
		if err != nil {
			return fmt.Errorf("could not apply option # %d, %v", i, err)
		}
	}

	return nil
}

// Send sends an email message, depending on what options are present.
// With filters, then all filters must match in order to send. With
// persistence, then the message is sent only if a message of the
// same kind was not sent to the same recipient within the notifier's
// period. The scope namespaces throttling state, typically per
// service.
func (n *Notifier) Send(ctx context.Context, scope string, kind Kind, msg string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for _, f := range n.filters {
		if !strings.Contains(msg, f) {
			log.Printf("filter '%s' applied: not sending %s message", f, kind)
			return nil
		}
	}

	for _, recipient := range n.recipients {
		if n.store != nil {
			sendable, err := n.store.Sendable(ctx, scope, n.period, string(kind)+"."+recipient)
			if err != nil {
				log.Printf("store.Sendable returned error: %v", err)
			}
			if !sendable {
				log.Printf("too soon to send %s a %s message", recipient, kind)
				continue
			}
		}

		log.Printf("sending %s a %s message", recipient, kind)

		if n.publicKey != "" && n.privateKey != "" {
			clt := mailjet.NewMailjetClient(n.publicKey, n.privateKey)
			info := []mailjet.InfoMessagesV31{{
				From:     &mailjet.RecipientV31{Email: n.sender},
				To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: recipient}},
				Subject:  strings.Title(string(kind)) + " notification",
				TextPart: msg,
			}}

			msgs := mailjet.MessagesV31{Info: info}
			_, err := clt.SendMailV31(&msgs)
			if err != nil {
				return fmt.Errorf("could not send mail: %w", err)
			}
		}

		if n.store != nil {
			err := n.store.Sent(ctx, scope, string(kind)+"."+recipient)
			if err != nil {
				log.Printf("store.Sent returned error: %v", err)
			}
		}
	}

	return nil
}
