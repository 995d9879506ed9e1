package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// IPCGet asks the router listening on socket for a rendering of its route table
func IPCGet(socket string) (string, error) {
	conn, err := net.DialTimeout("unix", socket, 5*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	_, err = rw.WriteString("inspect\n")
	if err != nil {
		return "", err
	}
	err = rw.Flush()
	if err != nil {
		return "", err
	}

	res, err := rw.ReadString(0)
	if err != nil && err != io.EOF {
		return "", err
	}
	if len(res) != 0 && res[len(res)-1] == 0 {
		res = res[:len(res)-1]
	}
	return res, nil
}

// ServeIPC answers inspect requests on a unix socket until ctx is cancelled
func ServeIPC(ctx context.Context, c *Core, socket string) error {
	_ = os.Remove(socket)
	ln, err := net.Listen("unix", socket)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer os.Remove(socket)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close()
			rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
			if err := HandleIPCGet(ctx, c, rw); err != nil {
				c.Log.Debug("ipc request failed", "error", err)
			}
		}()
	}
}

func HandleIPCGet(ctx context.Context, c *Core, rw *bufio.ReadWriter) error {
	cmd, err := rw.ReadString('\n')
	if err != nil {
		return err
	}
	switch cmd {
	case "inspect\n":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return err
		}
		_, err = rw.WriteString(snap.String())
		if err != nil {
			return err
		}
		err = rw.WriteByte(0)
		if err != nil {
			return err
		}
		return rw.Flush()
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}
