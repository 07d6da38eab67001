// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Command chat-client connects to a chat-server socket, announces
// itself with the connect method, then relays stdin lines to the
// server's send method while printing text_added signals as they
// arrive.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"

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
	Use:   "chat-client",
	Short: "Connect to the tiny-ipc sample chat server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringP("socket", "s", "/tmp/tiny-ipc-chat.sock", "Unix socket path to connect to")
	rootCmd.Flags().StringP("name", "n", "anonymous", "Display name to announce on connect")
	_ = viper.BindPFlag("socket", rootCmd.Flags().Lookup("socket"))
	_ = viper.BindPFlag("name", rootCmd.Flags().Lookup("name"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("chat-client: exiting")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("unix", viper.GetString("socket"))
	if err != nil {
		return err
	}
	t, err := transport.New(conn.(*net.UnixConn))
	if err != nil {
		return err
	}

	client := tinyipc.NewClient(t, tinyipc.NewLogger(log))
	done := make(chan error, 1)
	client.OnError(func(err error) { done <- err })

	signals := schema.NewSignalGroup(chat.Interface)
	schema.BindSignal(signals, chat.TextAdded, func(p chat.TextAddedParams) {
		fmt.Println(p.Text)
	})
	client.AddSignalGroup(signals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- client.Run(ctx) }()

	if err := tinyipc.Invoke(client, chat.Connect, chat.ConnectParams{Name: viper.GetString("name")}, func(ok bool) {
		if !ok {
			log.Error("chat-client: server refused connect")
		}
	}); err != nil {
		return err
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if err := tinyipc.Invoke(client, chat.Send, chat.SendParams{Text: line}, nil); err != nil {
				log.WithError(err).Warn("chat-client: send failed")
				return
			}
		}
	}()

	return <-done
}
