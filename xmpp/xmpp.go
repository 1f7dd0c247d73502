package xmpp

import (
	"crypto/tls"
	"errors"
	"strings"

	"github.com/mattn/go-xmpp"
	log "github.com/sirupsen/logrus"
)

// Config holds the account used to push passage alerts.
type Config struct {
	Host     string
	Jid      string
	Password string
	To       string
}

// Notifier delivers simulation alerts to a chat recipient. A fresh client is
// dialed per message; alert volume is far too low to justify holding a
// connection open across ticks.
type Notifier struct {
	Config Config
}

// ErrNotConfigured is returned when the account is incomplete. Callers treat
// it as "notifications off" rather than a failure.
var ErrNotConfigured = errors.New("xmpp: missing jid, password or recipient")

// Enabled reports whether the notifier has a complete account.
func (n Notifier) Enabled() bool {
	return n.Config.Jid != "" && n.Config.Password != "" && n.Config.To != ""
}

func serverName(jid string) string {
	parts := strings.Split(jid, "@")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Send delivers one chat message to the configured recipient.
func (n Notifier) Send(message string) error {
	if !n.Enabled() {
		return ErrNotConfigured
	}

	host := n.Config.Host
	if host == "" {
		host = serverName(n.Config.Jid)
	}

	xmpp.DefaultConfig = tls.Config{
		InsecureSkipVerify: true,
	}

	options := xmpp.Options{
		Host:     host,
		User:     n.Config.Jid,
		Password: n.Config.Password,
		NoTLS:    true,
		StartTLS: true,
		Session:  false,
		Status:   "xa",
	}

	talk, err := options.NewClient()
	if err != nil {
		log.Errorf("xmpp connect to %s failed: %v", host, err)
		return err
	}
	defer talk.Close()

	if _, err := talk.Send(xmpp.Chat{Remote: n.Config.To, Type: "chat", Text: message}); err != nil {
		log.Errorf("xmpp send to %s failed: %v", n.Config.To, err)
		return err
	}

	log.Debugf("xmpp alert delivered to %s", n.Config.To)
	return nil
}
