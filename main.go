package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/ajuia-m/hw05-final/config"
	"github.com/ajuia-m/hw05-final/internal/database"
	"github.com/ajuia-m/hw05-final/internal/models"
	"github.com/ajuia-m/hw05-final/internal/server"
)

var cfg *config.Config

func serve(ctx context.Context, _ *cli.Command) error {
	return server.Run(ctx, cfg)
}

var cmd = &cli.Command{
	Name:  "yatube",
	Usage: "Блог с постами, группами, комментариями и подписками",
	Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
		// 1. Загружаем конфигурацию приложения
		var err error
		if cfg, err = config.Load(); err != nil {
			return ctx, err
		}
		// 2. Настраиваем логгер
		return ctx, cfg.SetupLogger()
	},
	Action: serve,
	Commands: []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Запустить веб-сервер",
			Action: serve,
		},
		{
			Name:  "migrate",
			Usage: "Применить миграции базы данных",
			Action: func(ctx context.Context, _ *cli.Command) error {
				store, err := server.OpenStore(cfg)
				if err != nil {
					return err
				}
				return store.Close()
			},
		},
		{
			Name:  "group",
			Usage: "Управление группами",
			Commands: []*cli.Command{
				{
					Name:  "create",
					Usage: "Создать группу",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "slug", Usage: "уникальный адрес группы", Required: true},
						&cli.StringFlag{Name: "title", Usage: "название группы", Required: true},
						&cli.StringFlag{Name: "description", Usage: "описание группы"},
					},
					Action: createGroup,
				},
			},
		},
		{
			Name:  "cache",
			Usage: "Управление кэшем страниц",
			Commands: []*cli.Command{
				{
					Name:  "clear",
					Usage: "Сбросить кэш главной страницы",
					Action: func(ctx context.Context, _ *cli.Command) error {
						c, closeCache, err := server.OpenCache(ctx, cfg)
						if err != nil {
							return err
						}
						defer closeCache()
						if err := c.Clear(ctx); err != nil {
							return err
						}
						log.Info("Page cache cleared.")
						return nil
					},
				},
			},
		},
	},
}

func createGroup(ctx context.Context, c *cli.Command) error {
	store, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	g := models.Group{
		Slug:        strings.TrimSpace(c.String("slug")),
		Title:       strings.TrimSpace(c.String("title")),
		Description: c.String("description"),
	}
	if err := store.CreateGroup(ctx, &g); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("group with slug %q already exists", g.Slug)
		}
		return err
	}
	log.Infof("Group %q created with id %d", g.Title, g.ID)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Errorf("FATAL: %v", err)
		os.Exit(1)
	}
}
