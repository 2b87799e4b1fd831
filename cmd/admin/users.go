package main

import (
	"fmt"
	"strconv"

	"github.com/arvi1709/AI-library/internal/repository"

	"github.com/spf13/cobra"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id|email>",
		Short: "Show an account with its social graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			repo := repository.NewUserRepository(e.db)
			ctx := cmd.Context()

			id, perr := strconv.ParseUint(args[0], 10, 64)
			if perr != nil {
				u, err := repo.GetByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				id = uint64(u.ID)
			}
			user, err := repo.GetWithGraph(ctx, uint(id))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderUser(user))
			return nil
		},
	})
	return cmd
}
