package main

import (
	"fmt"
	"hash"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/server"
	"github.com/muesli/coral"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dbname = "starving-documents.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cfg string
)

func main() {
	c := &coral.Command{
		Use:     "starvingd",
		Short:   "Document server for the starving grocery list",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    coral.ExactArgs(0),
	}
	initCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(initCmd)

	reindexCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(reindexCmd)

	serverCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(serverCmd)

	tokenCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "Token time to live")
	tokenCmd.Flags().Bool("paseto", false, "Issue a PASETO instead of a JWT")
	c.AddCommand(tokenCmd)

	purgeCmd.Flags().StringVarP(&cfg, "config", "c", "", "Configuration file")
	c.AddCommand(purgeCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// load reads the configuration file then the STARVING_ environment variables.
func load() (*koanf.Koanf, error) {
	konf := koanf.New(".")
	if cfg != "" {
		if err := konf.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	err := konf.Load(env.Provider("STARVING_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "STARVING_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	return konf, err
}

func dbnameWithPath(path string) string {
	if len(path) == 0 {
		return dbname
	}
	return filepath.Join(path, dbname)
}

func kdf(l int, k []byte) []byte {
	nhash := func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			panic(err)
		}
		return h
	}

	payload := make([]byte, l)

	kdf := hkdf.New(nhash, k, nil, nil)
	_, err := io.ReadFull(kdf, payload)
	if err != nil {
		panic(err)
	}

	return payload
}

func logger(filename string) *logrus.Logger {
	l := logrus.New()
	if filename == "" {
		return l
	}

	l.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    20, // megabytes
		MaxBackups: 2,
		MaxAge:     10, //days
	}))
	return l
}

func secrets(konf *koanf.Koanf) (signingKey, sessionSecret []byte, err error) {
	if konf.String("secret_key") == "" {
		return nil, nil, errors.New("secret_key not found")
	}
	if konf.String("session.secret") == "" {
		return nil, nil, errors.New("session secret not found")
	}
	return konf.MustBytes("secret_key"), kdf(32, konf.MustBytes("session.secret")), nil
}

var (
	initCmd = &coral.Command{
		Use:   "init",
		Short: "Init the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			return docstore.Init(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	reindexCmd = &coral.Command{
		Use:   "reindex",
		Short: "Reindex the database",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			return docstore.ReIndex(dbnameWithPath(konf.String("database_path")))
		},
	}

	//
	tokenCmd = &coral.Command{
		Use:   "token USER_ID",
		Short: "Issue an access token for a user",
		Args:  coral.ExactArgs(1),
		RunE: func(c *coral.Command, args []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			signingKey, sessionSecret, err := secrets(konf)
			if err != nil {
				return err
			}

			ttl, _ := c.Flags().GetDuration("ttl")
			usePASETO, _ := c.Flags().GetBool("paseto")

			var token string
			if usePASETO {
				token, err = server.CreatePASETO(sessionSecret, args[0], ttl)
			} else {
				token, err = server.CreateJWT(signingKey, args[0], ttl)
			}
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	//
	purgeCmd = &coral.Command{
		Use:   "purge USER_ID",
		Short: "Remove all documents of a user",
		Args:  coral.ExactArgs(1),
		RunE: func(_ *coral.Command, args []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			database := dbnameWithPath(konf.String("database_path"))
			fmt.Println("Opening", database)
			store, err := docstore.Open(database, docstore.Policy{}, logrus.StandardLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Purge(args[0])
			if err != nil {
				return err
			}

			fmt.Println("Documents removed:", report.Documents)
			fmt.Println("Shared lists removed:", report.SharedLists)
			fmt.Println("Memberships withdrawn:", report.Memberships)
			return nil
		},
	}

	//
	//
	serverCmd = &coral.Command{
		Use:   "server",
		Short: "Start server",
		Args:  coral.ExactArgs(0),
		RunE: func(_ *coral.Command, _ []string) error {
			konf, err := load()
			if err != nil {
				return err
			}

			signingKey, sessionSecret, err := secrets(konf)
			if err != nil {
				return err
			}

			l := logger(konf.String("log_file"))
			policy := docstore.Policy{
				RecipientWrites: konf.Bool("shared_lists.recipient_writes"),
			}

			store, err := docstore.Open(dbnameWithPath(konf.String("database_path")), policy, l)
			if err != nil {
				return errors.Wrap(err, "could not open database")
			}
			defer store.Close()

			engine := server.EchoEngine(server.Controller{
				Version:       version,
				Store:         store,
				Logger:        l,
				SigningKey:    signingKey,
				SessionSecret: sessionSecret,
			})
			server.PrintRoutes(engine)

			address := konf.String("address")
			message := "could not run server"
			l.Infof("Server listening on %s", address)
			parts := strings.Split(address, ":")
			if len(parts) == 2 && parts[0] == "unix" {
				socketFile := parts[1]
				if _, err := os.Stat(socketFile); err == nil {
					l.Infof("Removing existing %s", socketFile)
					os.Remove(socketFile)
				}
				defer os.Remove(socketFile)
				listener, err := net.Listen(parts[0], socketFile)
				if err != nil {
					return err
				}
				return errors.Wrap(engine.Server.Serve(listener), message)
			}
			return errors.Wrap(engine.Start(address), message)
		},
	}
)
