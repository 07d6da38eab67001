// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Command chat-server listens on a Unix domain socket and runs the
// sample chat protocol defined in examples/chat, admitting one
// connection per session and fanning out posted text to every admitted
// session via the text_added signal.
package main

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tinyipc "github.com/APokorny/tiny-ipc"
	"github.com/APokorny/tiny-ipc/examples/chat"
	"github.com/APokorny/tiny-ipc/schema"
	"github.com/APokorny/tiny-ipc/transport"
)

var log = logrus.NewEntry(logrus.StandardLogger())

var rootCmd = &cobra.Command{
	Use:   "chat-server",
	Short: "Run the tiny-ipc sample chat server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringP("socket", "s", "/tmp/tiny-ipc-chat.sock", "Unix socket path to listen on")
	_ = viper.BindPFlag("socket", rootCmd.Flags().Lookup("socket"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("chat-server: exiting")
		os.Exit(1)
	}
}

type room struct {
	mu       sync.Mutex
	sessions []*tinyipc.Session
}

func (r *room) add(s *tinyipc.Session) {
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
}

func (r *room) remove(s *tinyipc.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sess := range r.sessions {
		if sess == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}

func (r *room) broadcast(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if err := tinyipc.SendSignal(s, chat.TextAdded, chat.TextAddedParams{Text: text}); err != nil {
			log.WithError(err).Warn("chat-server: failed to fan out text_added")
		}
	}
}

func run(cmd *cobra.Command, args []string) error {
	socketPath := viper.GetString("socket")
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.WithField("socket", socketPath).Info("chat-server: listening")

	r := &room{}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serve(r, conn.(*net.UnixConn))
	}
}

func serve(r *room, conn *net.UnixConn) {
	t, err := transport.New(conn)
	if err != nil {
		log.WithError(err).Error("chat-server: transport setup failed")
		conn.Close()
		return
	}
	session := tinyipc.NewSession(t, tinyipc.NewLogger(log))
	session.OnError(func(err error) {
		r.remove(session)
		log.WithError(err).Info("chat-server: session ended")
	})

	methods := schema.NewMethodGroup(chat.Interface)
	schema.BindMethod(methods, chat.Connect, func(p chat.ConnectParams) bool {
		log.WithFields(logrus.Fields{"uid": p.Creds.UID, "gid": p.Creds.GID, "name": p.Name}).Info("chat-server: connect")
		r.add(session)
		return true
	})
	schema.BindMethod(methods, chat.Send, func(p chat.SendParams) struct{} {
		r.broadcast(p.Text)
		return struct{}{}
	})
	session.AddMethodGroup(methods)

	_ = session.Run(context.Background())
}
