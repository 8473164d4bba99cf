package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"brein.evalgo.org/request"
)

func newActivityCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "send an activity",
		Example: `  brein activity --type login --email diane@example.com
  brein activity --type search --tag productIds=1,2 --description "searched shoes"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			activityType, _ := cmd.Flags().GetString("type")
			category, _ := cmd.Flags().GetString("activity-category")
			description, _ := cmd.Flags().GetString("description")
			tags, _ := cmd.Flags().GetStringToString("tag")

			return opts.dispatch(cmd, func(_ *client, user *request.User) (request.Entity, error) {
				activity := request.NewActivity(user).
					SetType(activityType).
					SetCategory(category).
					SetDescription(description)
				for key, value := range tags {
					if err := activity.SetTag(key, value); err != nil {
						return nil, err
					}
				}
				return activity, nil
			})
		},
	}
	cmd.Flags().String("type", "", "activity type, e.g. login or search")
	cmd.Flags().String("activity-category", "", "activity category (defaults to --category)")
	cmd.Flags().String("description", "", "activity description")
	cmd.Flags().StringToString("tag", nil, "activity tags as key=value")
	_ = cmd.MarkFlagRequired("type")
	addUserFlags(cmd.Flags())
	return cmd
}

func newLookupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "look up dimensions for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dimensions, _ := cmd.Flags().GetStringSlice("dimension")
			return opts.dispatch(cmd, func(_ *client, user *request.User) (request.Entity, error) {
				return request.NewLookup(user, dimensions...), nil
			})
		},
	}
	cmd.Flags().StringSlice("dimension", nil, "dimension to look up (repeatable)")
	addUserFlags(cmd.Flags())
	return cmd
}

func newTemporalDataCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "temporaldata",
		Aliases: []string{"temporal"},
		Short:   "resolve weather, holidays and events for a time and place",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			timezone, _ := flags.GetString("timezone")
			location, _ := flags.GetString("location")
			city, _ := flags.GetString("city")
			state, _ := flags.GetString("state")
			country, _ := flags.GetString("country")
			lookupIP, _ := flags.GetString("lookup-ip")
			shapes, _ := flags.GetStringSlice("shape")
			now, _ := flags.GetBool("now")

			return opts.dispatch(cmd, func(_ *client, user *request.User) (request.Entity, error) {
				temporal := request.NewTemporalData(user).
					SetTimezone(timezone).
					SetLookupIPAddress(lookupIP).
					SetLocation(location).
					SetStructuredLocation(city, state, country).
					SetShapeTypes(shapes...)

				if flags.Changed("latitude") != flags.Changed("longitude") {
					return nil, fmt.Errorf("--latitude and --longitude must be given together")
				}
				if flags.Changed("latitude") {
					lat, _ := flags.GetFloat64("latitude")
					lon, _ := flags.GetFloat64("longitude")
					temporal.SetCoordinates(lat, lon)
				}
				if now {
					temporal.SetLocalDateTimeAt(time.Now())
				}
				return temporal, nil
			})
		},
	}
	flags := cmd.Flags()
	flags.String("timezone", "", "IANA timezone, e.g. America/Los_Angeles")
	flags.String("location", "", "free text location")
	flags.String("city", "", "city")
	flags.String("state", "", "state")
	flags.String("country", "", "country")
	flags.Float64("latitude", 0, "latitude")
	flags.Float64("longitude", 0, "longitude")
	flags.String("lookup-ip", "", "resolve the location of this ip address")
	flags.StringSlice("shape", nil, "shape types to return, e.g. CITY")
	flags.Bool("now", false, "send the local date time of this machine")
	addUserFlags(flags)
	return cmd
}

func newRecommendationCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommendation",
		Short: "request recommendations for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			category, _ := cmd.Flags().GetString("recommendation-category")
			return opts.dispatch(cmd, func(_ *client, user *request.User) (request.Entity, error) {
				return request.NewRecommendation(user).
					SetNumRecommendations(count).
					SetCategory(category), nil
			})
		},
	}
	cmd.Flags().Int("count", request.DefaultNumRecommendations, "number of recommendations")
	cmd.Flags().String("recommendation-category", "", "restrict recommendations to a category")
	addUserFlags(cmd.Flags())
	return cmd
}
