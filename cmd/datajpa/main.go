/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tomoncle/datajpa"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/repository"
	"github.com/tomoncle/datajpa/types"
	"github.com/tomoncle/datajpa/utils"
	"gopkg.in/yaml.v3"
)

var log *utils.Logger

// AppConfig is the configuration file layout of the console program.
type AppConfig struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Database database.Config `yaml:"database"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

func (c *AppConfig) ConfigLoader() *database.Config {
	return &c.Database
}

func loadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: *database.DefaultConfig(),
	}
	if path == "" {
		cfg.Database.ConnectionConfig.DBName = ":memory:"
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file, in-memory sqlite when empty")
	flag.Parse()

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config error: %v\n", err)
		os.Exit(1)
	}
	utils.ConfigureConsoleLogFormat(cfg.Logging.Format)
	utils.SetAllLoggersLevel(utils.ParseLogLevel(cfg.Logging.Level))
	log = utils.NewLogger("DATAJPA")

	if _, err := database.InitDB(cfg); err != nil {
		log.Fatalf("init database error: %v", err)
	}
	defer func() { _ = database.CloseDB() }()

	if err := run(context.Background()); err != nil {
		log.Errorf("demo failed: %v", err)
		_ = database.CloseDB()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	svc := datajpa.NewMemberService()

	for i, age := range []int{10, 20, 30, 40, 50} {
		team := "teamA"
		if i%2 == 1 {
			team = "teamB"
		}
		if _, err := svc.Join(ctx, fmt.Sprintf("member%d", i+1), age, team); err != nil {
			return err
		}
	}
	if _, err := svc.Join(ctx, "loner", 60, ""); err != nil {
		return err
	}

	usernames, err := svc.Usernames(ctx)
	if err != nil {
		return err
	}
	log.Infof("usernames = %v", usernames)

	dtos, err := svc.MemberDtos(ctx)
	if err != nil {
		return err
	}
	for _, dto := range dtos {
		log.Infof("dto = %s", dto)
	}

	page, err := svc.PageByAge(ctx, 10, types.PageOf(0, 3, types.SortBy(types.DESC, "username")))
	if err != nil {
		return err
	}
	log.Infof("page %d/%d total=%d hasNext=%t content=%v", page.Page+1, page.TotalPages(), page.Total, page.HasNext(), page.Content)

	err = svc.Transactional(ctx, func(ctx context.Context, s *repository.Session) error {
		members := repository.NewMemberRepository()
		found, err := members.FindByUsernameAndAgeGreaterThan(ctx, s, "member3", 15)
		if err != nil {
			return err
		}
		log.Infof("findByUsernameAndAgeGreaterThan = %v", found)

		teams := repository.NewTeamRepository()
		teamA, err := teams.FindByName(ctx, s, "teamA")
		if err != nil {
			return err
		}
		if team, ok := teamA.Get(); ok {
			if _, err := teams.LoadMembers(ctx, s, team); err != nil {
				return err
			}
			log.Infof("%s members = %v", team, team.Members)
		}
		return nil
	})
	if err != nil {
		return err
	}

	affected, err := svc.BulkAgePlus(ctx, nil, 30)
	if err != nil {
		return err
	}
	log.Infof("bulkAgePlus(30) affected %d rows", affected)

	health := database.GetHealthStatus(ctx)
	log.Infof("database healthy=%t response=%s", health.Healthy, health.ResponseTime)
	return nil
}
