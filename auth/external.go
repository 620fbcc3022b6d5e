package auth

import "os"

// External implements the EXTERNAL mechanism: it authenticates the local
// process's own UID (as reported by os.Getuid) by sending it as the
// initial response, relying on the transport itself (a unix domain
// socket's SO_PEERCRED, typically) for the server to actually verify it.
type External struct {
	uid string
}

// NewExternal builds an External mechanism asserting the current
// process's UID.
func NewExternal() *External {
	return &External{uid: encodeHexString(itoa(os.Getuid()))}
}

func (e *External) Name() string { return "EXTERNAL" }

func (e *External) InitialResponse() []byte { return []byte(e.uid) }

func (e *External) Continue(challenge []byte) ([]byte, error) {
	// The server should not challenge EXTERNAL further; answer with an
	// empty response if it does rather than erroring the handshake.
	return []byte{}, nil
}

func encodeHexString(s string) string { return string(encodeHex([]byte(s))) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
