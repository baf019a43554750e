package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-pairer",
	Short: "Finds before/after photo pairs in CompanyCam projects",
	Long: `Photo Pairer scans CompanyCam job-site projects, classifies photos with
AI models (OpenAI, Gemini) or crew tags, matches before/after pairs by scene
fingerprint or capture-session timing, and publishes accepted pairs as
social media drafts.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
