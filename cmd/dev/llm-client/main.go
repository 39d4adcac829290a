// Command llm-client runs a job analysis against the configured model from
// the terminal, without the HTTP server or a database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/garnizeh/careerpal/internal/ai"
	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/pkg/models"
	"github.com/garnizeh/careerpal/pkg/ollama"
)

var defaultClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	jobPath := flag.String("job", "", "File with the job description (text or HTML)")
	profilePath := flag.String("profile", "", "JSON file with the CV profile (name, summary, experience, skills)")
	letter := flag.Bool("letter", false, "Also write a cover letter")
	list := flag.Bool("list", false, "List local Ollama models and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Env = config.EnvDevelopment
	if *list && cfg.EngineConfig.Model == "" {
		cfg.EngineConfig.Model = "unused"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var completer ai.Completer
	switch cfg.EngineConfig.Provider {
	case config.EngineGemini:
		completer, err = ai.NewGeminiCompleter(ctx, cfg.Gemini.APIKey, cfg.EngineConfig.Model, cfg.EngineConfig.Temperature)
		if err != nil {
			log.Fatal(err)
		}
	default:
		client, err := ollama.NewClient(cfg.Ollama, defaultClient)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		if *list {
			infos, err := client.ListModels(ctx)
			if err != nil {
				log.Fatal(err)
			}
			for _, m := range infos {
				fmt.Printf("%s\t%d\n", m.Name, m.Size)
			}
			return
		}
		completer = ai.NewOllamaCompleter(client, cfg.EngineConfig.Model, cfg.EngineConfig.Temperature)
	}

	if *jobPath == "" {
		log.Fatal("-job is required")
	}
	job, err := os.ReadFile(*jobPath)
	if err != nil {
		log.Fatal(err)
	}

	user := &models.User{Name: "Candidate"}
	if *profilePath != "" {
		b, err := os.ReadFile(*profilePath)
		if err != nil {
			log.Fatal(err)
		}
		if err := json.Unmarshal(b, user); err != nil {
			log.Fatalf("parse profile: %v", err)
		}
	}

	engine, err := ai.NewEngine(ctx, completer, cfg.EngineConfig)
	if err != nil {
		log.Fatal(err)
	}

	analysis, err := engine.AnalyzeJob(ctx, string(job), ai.CVText(user))
	if err != nil {
		log.Fatal(err)
	}
	out, _ := json.MarshalIndent(analysis, "", "  ")
	fmt.Println(string(out))

	if *letter {
		text, err := engine.GenerateCoverLetter(ctx, string(job), ai.CVText(user), analysis)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println()
		fmt.Println(text)
	}
}
