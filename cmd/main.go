package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"voicetrader/cmd/keys"
	"voicetrader/cmd/toolserver"
	"voicetrader/src/database"
	"voicetrader/src/dispatcher"
	"voicetrader/src/logging"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "voicetrader"
	app.Usage = "The voice trading assistant command line interface"
	app.Version = Version
	app.Before = func(_ *cli.Context) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		logging.SetupLogger()
		return nil
	}

	app.Commands = []cli.Command{
		serveCMD,
		callCMD,
		toolsCMD,
		encryptTokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP tool server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Connects to the trading gateway and serves /tools, /status and /metrics`,
	}
	callCMD = cli.Command{
		Name:      "call",
		Usage:     "run one tool call and print the result",
		Action:    callAction,
		ArgsUsage: "<tool> [json-args]",
		Flags: []cli.Flag{
			cli.DurationFlag{
				Name:  "timeout",
				Value: 45 * time.Second,
				Usage: "overall deadline for the call",
			},
		},
		Description: `Example: voicetrader call get_price '{"symbol":"R_100"}'`,
	}
	toolsCMD = cli.Command{
		Name:        "tools",
		Usage:       "print the tool catalogue",
		Action:      toolsAction,
		Description: `Prints the function definitions offered to the speech session`,
	}
	encryptTokenCMD = cli.Command{
		Name:        "encrypt-token",
		Usage:       "seal an API token with DERIV_CREDENTIALS_KEY",
		Action:      encryptTokenAction,
		ArgsUsage:   "<token>",
		Description: `Prints a DERIV_API_TOKEN_ENC line for the .env file`,
	}
)

func serveAction(_ *cli.Context) error {
	log := logrus.WithField("cmd", "serve")
	log.Info("Starting serve CMD")

	if err := database.InitMainDB(); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.CloseMainDB()

	rt := toolserver.NewRuntime(context.Background(), toolserver.GetConfig(), database.MainDB, log)
	defer rt.Close()

	if err := rt.Start(); err != nil {
		log.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func callAction(c *cli.Context) error {
	// stdout carries the result only
	logrus.SetOutput(os.Stderr)
	log := logrus.WithField("cmd", "call")
	name := c.Args().First()
	if name == "" {
		return errors.New("usage: call <tool> [json-args]")
	}
	args := strings.TrimSpace(strings.Join(c.Args().Tail(), " "))

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	rt := toolserver.NewRuntime(ctx, toolserver.GetConfig(), nil, log)
	defer rt.Close()

	return printJSON(rt.Dispatcher.Dispatch(ctx, name, []byte(args)))
}

func toolsAction(_ *cli.Context) error {
	return printJSON(dispatcher.Tools())
}

func encryptTokenAction(c *cli.Context) error {
	return keys.EncryptToken(os.Stdout, keys.GetConfig(), c.Args().First())
}

func printJSON(v interface{}) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(out))
	return err
}
