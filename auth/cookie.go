package auth

import (
	"bufio"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ohporter/adbus/internal/logger"
)

// CookieSHA1 implements the DBUS_COOKIE_SHA1 mechanism: the server
// challenges with a cookie context and id, the client looks that cookie
// up in ~/.dbus-keyrings/<context> and answers with a SHA-1 proof that it
// can read the file, i.e. that it runs as the same user.
type CookieSHA1 struct {
	uid  string
	home func() (string, error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewCookieSHA1 builds a CookieSHA1 mechanism asserting the current
// process's UID, reading cookies from the current user's home directory.
func NewCookieSHA1() *CookieSHA1 {
	return &CookieSHA1{uid: itoa(os.Getuid()), home: os.UserHomeDir}
}

func (c *CookieSHA1) Name() string { return "DBUS_COOKIE_SHA1" }

func (c *CookieSHA1) InitialResponse() []byte { return []byte(encodeHexString(c.uid)) }

// Continue answers a "<context> <id> <server-challenge>" challenge by
// reading the numbered cookie out of the keyring file, generating its own
// challenge, and responding with "<client-challenge> SHA1(<server-challenge>:<client-challenge>:<cookie>)".
func (c *CookieSHA1) Continue(challenge []byte) ([]byte, error) {
	parts := strings.Fields(string(challenge))
	if len(parts) != 3 {
		return nil, fmt.Errorf("auth: malformed DBUS_COOKIE_SHA1 challenge %q", challenge)
	}
	context, idStr, serverChallenge := parts[0], parts[1], parts[2]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("auth: malformed cookie id %q: %w", idStr, err)
	}

	cookie, err := c.readCookie(context, id)
	if err != nil {
		return nil, err
	}

	clientChallenge, err := randomHex(16)
	if err != nil {
		return nil, err
	}

	sum := sha1.Sum([]byte(serverChallenge + ":" + clientChallenge + ":" + cookie))
	resp := clientChallenge + " " + hex.EncodeToString(sum[:])
	return []byte(encodeHexString(resp)), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating client challenge: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (c *CookieSHA1) keyringDir() (string, error) {
	home, err := c.home()
	if err != nil {
		return "", fmt.Errorf("auth: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".dbus-keyrings"), nil
}

// readCookie scans context's keyring file for the numbered cookie. It is
// re-read on every call rather than cached: keyring files rotate under
// the client (see WatchRotation), and a cookie that was valid a minute
// ago may already be gone.
func (c *CookieSHA1) readCookie(context string, id int64) (string, error) {
	dir, err := c.keyringDir()
	if err != nil {
		return "", err
	}
	f, err := os.Open(filepath.Join(dir, context))
	if err != nil {
		return "", fmt.Errorf("auth: opening keyring %q: %w", context, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		lineID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		if lineID == id {
			return fields[2], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("auth: reading keyring %q: %w", context, err)
	}
	return "", fmt.Errorf("auth: cookie id %d not found in keyring %q", id, context)
}

// WatchRotation starts watching the keyring directory for changes
// (cookies are rotated periodically by dbus-daemon) and logs each
// rotation event at debug level. The returned stop function closes the
// underlying watcher; callers should defer it for the lifetime of the
// connection using this mechanism.
func (c *CookieSHA1) WatchRotation() (stop func(), err error) {
	dir, err := c.keyringDir()
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("auth: creating keyring watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("auth: watching keyring dir %q: %w", dir, err)
	}

	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Debug("dbus cookie keyring changed", "file", ev.Name, "op", ev.Op.String())
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("dbus cookie keyring watcher error", "error", werr)
			}
		}
	}()

	return func() { w.Close() }, nil
}
