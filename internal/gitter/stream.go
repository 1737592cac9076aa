package gitter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/roomops/herald/internal/blacklist"
	"github.com/sirupsen/logrus"
)

const blacklistCommand = "blacklist:"

// Date layouts accepted in blacklist commands, tried in order.
var commandDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// StreamListener follows the room's streaming API and lets approved users
// blacklist dates by mentioning the bot. It runs in its own goroutine next
// to the runner loop and reconnects with a fixed delay when the stream
// drops.
type StreamListener struct {
	client        *Client
	logger        *logrus.Logger
	roomID        string
	mention       string
	approved      map[string]struct{}
	blacklist     *blacklist.Store
	stream        *http.Client
	reconnectWait time.Duration
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	now           func() time.Time
}

func NewStreamListener(client *Client, logger *logrus.Logger, roomID, botName string, approvedUsers []string, store *blacklist.Store) *StreamListener {
	approved := make(map[string]struct{}, len(approvedUsers))
	for _, id := range approvedUsers {
		approved[id] = struct{}{}
	}

	return &StreamListener{
		client:   client,
		logger:   logger,
		roomID:   roomID,
		mention:  "@" + botName,
		approved: approved,
		// The streaming connection stays open indefinitely, so no
		// overall client timeout here, unlike the REST client.
		stream: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		blacklist:     store,
		reconnectWait: 5 * time.Second,
		now:           time.Now,
	}
}

// Start launches the listen loop.
func (l *StreamListener) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(ctx)
}

// Stop aborts the streaming connection and waits for the loop to exit.
func (l *StreamListener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	l.logger.Info("Stream listener stopped")
}

func (l *StreamListener) run(ctx context.Context) {
	defer l.wg.Done()

	for {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			l.logger.WithError(err).Warnf("Stream disconnected, reconnecting in %s", l.reconnectWait)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectWait):
		}
	}
}

func (l *StreamListener) listen(ctx context.Context) error {
	url := fmt.Sprintf("%s/rooms/%s/chatMessages", l.client.streamURL, l.roomID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.client.token)

	resp, err := l.stream.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, URL: url}
	}

	l.logger.Info("Connected to message stream")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		l.handleLine(scanner.Text())
	}

	return scanner.Err()
}

// handleLine processes one line from the stream. The API sends whitespace
// keep-alive lines between messages during low traffic; those are dropped.
func (l *StreamListener) handleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		l.logger.WithError(err).Debug("Skipping unparseable stream line")
		return
	}

	l.handleMessage(&msg)
}

func (l *StreamListener) handleMessage(msg *Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, l.mention) {
		return
	}

	if _, ok := l.approved[msg.From.ID]; !ok {
		l.logger.WithFields(logrus.Fields{
			"user": msg.From.Username,
			"text": text,
		}).Debug("Ignoring mention from unapproved user")
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(text, l.mention))
	if strings.HasPrefix(rest, blacklistCommand) {
		arg := strings.TrimSpace(strings.TrimPrefix(rest, blacklistCommand))
		l.handleBlacklist(arg, msg.From.DisplayName)
		return
	}

	l.logger.WithFields(logrus.Fields{
		"user": msg.From.Username,
		"text": rest,
	}).Debug("Ignoring unknown command")
}

func (l *StreamListener) handleBlacklist(arg, from string) {
	date, err := parseCommandDate(arg)
	if err != nil {
		l.reply(":x: Something was wrong with the specified date. Try again maybe.")
		return
	}

	today, _ := time.Parse(blacklist.DateLayout, l.now().Format(blacklist.DateLayout))
	if date.Before(today) {
		l.reply(":heavy_exclamation_mark: I'm afraid that date has already passed. Can't really do much about it!")
		return
	}

	if err := l.blacklist.Add(date); err != nil {
		if errors.Is(err, blacklist.ErrAlreadyListed) {
			l.reply(fmt.Sprintf(":heavy_exclamation_mark: The date %s is already blacklisted. Doing it again will only make it feel worse.",
				date.Format(blacklist.DateLayout)))
			return
		}
		l.logger.WithError(err).Error("Failed to persist blacklist")
		l.reply(":x: Something went wrong while saving that date. Try again later.")
		return
	}

	l.reply(fmt.Sprintf(":white_check_mark: **Success**! No further messages will be posted on %s. This action was initiated by **%s**.",
		date.Format(blacklist.DateLayout), from))
}

func (l *StreamListener) reply(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := l.client.SendMessage(ctx, l.roomID, text); err != nil {
		l.logger.WithError(err).Error("Failed to post reply")
	}
}

func parseCommandDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range commandDateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
