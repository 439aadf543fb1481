package gqlwsserver

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gqlwserror "github.com/onichandame/gql-ws-server/error"
)

const Subprotocol = `graphql-transport-ws`

// Socket binds a gorilla websocket connection to the engine.
type Socket struct {
	conn *websocket.Conn

	gracePeriod  time.Duration
	writeTimeout time.Duration

	writeLock sync.Mutex
	closeOnce sync.Once
	closed    int32
}

func NewSocket(conn *websocket.Conn, gracePeriod, writeTimeout time.Duration) *Socket {
	var sock Socket
	sock.conn = conn
	sock.gracePeriod = gracePeriod
	sock.writeTimeout = writeTimeout
	return &sock
}

// Upgrade negotiates the graphql-transport-ws subprotocol. Clients that do not
// speak it are closed with 4406.
func (s *Server) Upgrade(w http.ResponseWriter, r *http.Request) (*Socket, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      s.CheckOrigin,
		HandshakeTimeout: time.Second * 5,
		Subprotocols:     []string{Subprotocol},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	sock := NewSocket(conn, s.GraceClosePeriod, s.WriteTimeout)
	if conn.Subprotocol() != Subprotocol {
		fe := gqlwserror.NewFatalError(gqlwserror.SubprotocolNotAcceptable, `subprotocol must be `+Subprotocol)
		sock.Close(int(fe.Code), fe.Reason)
		return nil, fe
	}
	return sock, nil
}

// Receive returns text and binary frames alike. Control frames are handled by
// the websocket library.
func (s *Socket) Receive() (string, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		atomic.StoreInt32(&s.closed, 1)
		s.conn.Close()
		return ``, fmt.Errorf(`%w: %v`, ErrConnectionClosed, err)
	}
	return string(data), nil
}

func (s *Socket) Send(data string) error {
	if s.Closed() {
		return nil
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// Close writes the close frame and gives the peer GraceClosePeriod to answer
// before the underlying connection is dropped.
func (s *Socket) Close(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.closed, 1)
		msg := gqlwserror.NewFatalError(gqlwserror.CloseCode(code), reason).CloseMessage()
		s.writeLock.Lock()
		err = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
		s.writeLock.Unlock()
		time.AfterFunc(s.gracePeriod, func() { s.conn.Close() })
	})
	return err
}

func (s *Socket) Closed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}
