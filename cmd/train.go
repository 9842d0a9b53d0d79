package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/njmarch/goac/actorcritic"
	"github.com/njmarch/goac/environment/cartpole"
	"github.com/njmarch/goac/trajectory"
)

var (
	configPath string
	episodes   int
	seed       uint64
	logLevel   string
)

// trainCmd trains an actor-critic agent on the cartpole environment
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an actor-critic agent on cartpole",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		config := defaultTrainConfig()
		if configPath != "" {
			config, err = loadTrainConfig(configPath)
			if err != nil {
				logrus.Fatalf("Could not load configuration: %v", err)
			}
		}

		if err := train(config); err != nil {
			logrus.Fatalf("Training failed: %v", err)
		}
	},
}

func init() {
	trainCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML hyperparameter file")
	trainCmd.Flags().IntVarP(&episodes, "episodes", "e", 200,
		"number of episodes to train for")
	trainCmd.Flags().Uint64VarP(&seed, "seed", "s", 42,
		"seed for weight initialization and action sampling")
	trainCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info",
		"log verbosity level")
	rootCmd.AddCommand(trainCmd)
}

// train runs the episode loop: collect one trajectory with the current
// policy, then update the policy and value function from it.
func train(config trainConfig) error {
	algConfig, err := config.algorithmConfig(cartpole.NumActions)
	if err != nil {
		return err
	}

	agent, err := actorcritic.New(cartpole.Features, algConfig, seed)
	if err != nil {
		return err
	}
	env := cartpole.New(config.StepLimit, seed)

	for episode := 0; episode < episodes; episode++ {
		traj, err := trajectory.New(cartpole.Features)
		if err != nil {
			return err
		}

		state := env.Reset()
		episodeReturn := 0.0
		for {
			action, err := agent.SelectAction(state)
			if err != nil {
				return err
			}
			next, reward, done, err := env.Step(action)
			if err != nil {
				return err
			}
			if err := traj.Append(state, action, reward); err != nil {
				return err
			}

			episodeReturn += reward
			state = next
			if done {
				break
			}
		}

		stats, err := agent.Train(traj)
		if err != nil {
			return err
		}

		entry := logrus.WithFields(logrus.Fields{
			"episode": episode,
			"steps":   traj.Len(),
			"return":  episodeReturn,
		})
		if len(stats.CriticLoss) > 0 {
			entry = entry.WithField("criticLoss",
				stats.CriticLoss[len(stats.CriticLoss)-1])
		}
		entry.Info("episode complete")
	}

	return nil
}
