package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"brein.evalgo.org/signature"
	"brein.evalgo.org/version"
)

// identifyView is what identify prints.
type identifyView struct {
	UserID                 string `json:"userId" yaml:"userId"`
	Email                  string `json:"email,omitempty" yaml:"email,omitempty"`
	PushDeviceRegistration string `json:"pushDeviceRegistration,omitempty" yaml:"pushDeviceRegistration,omitempty"`
	SessionID              string `json:"sessionId" yaml:"sessionId"`
	Store                  string `json:"store" yaml:"store"`
}

func newIdentifyCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "remember the user and push token, then send an identify activity",
		Long: `identify persists the user id, email and push device registration in the
configured store (--store-driver bolt|redis). When a push token is known an
identify activity is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			userID, _ := cmd.Flags().GetString("user-id")
			token, _ := cmd.Flags().GetString("token")

			ctx, cancel := opts.context(cmd)
			defer cancel()

			rt, err := opts.setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			manager := rt.session
			if email != "" {
				manager.SetEmail(email)
			}
			if userID != "" {
				manager.SetUserID(userID)
			}
			if token != "" {
				manager.SetPushDeviceRegistration(token)
			}
			if err := manager.Save(ctx); err != nil {
				return err
			}
			// the identify activity is dispatched asynchronously
			if err := rt.engine.Close(); err != nil {
				return err
			}

			driver := rt.cfg.Store.Driver
			if driver == "" {
				driver = "memory"
			}
			return opts.print(cmd, identifyView{
				UserID:                 manager.UserID(),
				Email:                  manager.Email(),
				PushDeviceRegistration: manager.PushDeviceRegistration(),
				SessionID:              manager.SessionID(),
				Store:                  driver,
			})
		},
	}
	cmd.Flags().String("email", "", "user email to remember")
	cmd.Flags().String("user-id", "", "user id to remember")
	cmd.Flags().String("token", "", "push device registration token")
	return cmd
}

func newSecretCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-secret",
		Short: "generate a random signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, _ := cmd.Flags().GetInt("bits")
			secret, err := signature.GenerateSecret(bits)
			if err != nil {
				return err
			}
			return opts.print(cmd, map[string]interface{}{
				"secret": secret,
				"bits":   bits,
			})
		},
	}
	cmd.Flags().Int("bits", 256, "secret size in bits (multiple of 8)")
	return cmd
}

func newVersionCmd(opts *options) *cobra.Command {
	var dependency string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dependency == "" {
				return opts.print(cmd, version.GetBuildInfo())
			}
			dep := version.GetDependency(dependency)
			if dep == nil {
				return fmt.Errorf("dependency %s not found in build info", dependency)
			}
			return opts.print(cmd, dep)
		},
	}
	cmd.Flags().StringVar(&dependency, "dependency", "", "print only the version of this module dependency")
	return cmd
}
