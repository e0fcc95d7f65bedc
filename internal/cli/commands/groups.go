package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
)

// NewGroupsCmd creates the groups command group
func NewGroupsCmd(opts ...Option) *cobra.Command {
	teacherOnly := func(run runFunc) func(*cobra.Command, []string) error {
		return withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			return run(ctx, env, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List and manage your student groups (teacher)",
		Args:  cobra.NoArgs,
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			groups, err := env.Client.ListGroups(ctx)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(env.Out, "No groups found.")
				fmt.Fprintln(env.Out, "\nCreate one with: tsp groups create --name <name> --code <code>")
				return nil
			}

			rows := make([][]string, len(groups))
			for i, g := range groups {
				rows[i] = []string{g.ID, g.Code, g.Name}
			}
			return printTable(env.Out, []string{"ID", "CODE", "NAME"}, rows)
		}),
	}

	var input client.GroupInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		Args:  cobra.NoArgs,
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			if input.Name == "" || input.Code == "" {
				return fmt.Errorf("--name and --code are required")
			}
			group, err := env.Client.CreateGroup(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Group created: %s (%s) id=%s\n", group.Name, group.Code, group.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&input.Name, "name", "", "Group name")
	create.Flags().StringVar(&input.Code, "code", "", "Group code")

	var patch client.GroupInput
	update := &cobra.Command{
		Use:   "update <group-id>",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			if patch.Name == "" || patch.Code == "" {
				return fmt.Errorf("--name and --code are required")
			}
			group, err := env.Client.UpdateGroup(ctx, args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Group updated: %s (%s)\n", group.Name, group.Code)
			return nil
		}),
	}
	update.Flags().StringVar(&patch.Name, "name", "", "New group name")
	update.Flags().StringVar(&patch.Code, "code", "", "New group code")

	remove := &cobra.Command{
		Use:     "delete <group-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a group",
		Args:    cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			if err := env.Client.DeleteGroup(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Group %s deleted\n", args[0])
			return nil
		}),
	}

	members := &cobra.Command{
		Use:   "members <group-id>",
		Short: "List the students of a group",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			students, err := env.Client.ListGroupMembers(ctx, args[0])
			if err != nil {
				return err
			}
			return printStudents(env, students)
		}),
	}

	addMember := &cobra.Command{
		Use:   "add-member <group-id> <student-id>...",
		Short: "Add students to a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			for _, studentID := range args[1:] {
				if err := env.Client.AddGroupMember(ctx, args[0], studentID); err != nil {
					return fmt.Errorf("failed to add %s: %w", studentID, err)
				}
				fmt.Fprintf(env.Out, "✓ Added %s\n", studentID)
			}
			return nil
		}),
	}

	removeMember := &cobra.Command{
		Use:   "remove-member <group-id> <student-id>...",
		Short: "Remove students from a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			for _, studentID := range args[1:] {
				if err := env.Client.RemoveGroupMember(ctx, args[0], studentID); err != nil {
					return fmt.Errorf("failed to remove %s: %w", studentID, err)
				}
				fmt.Fprintf(env.Out, "✓ Removed %s\n", studentID)
			}
			return nil
		}),
	}

	cmd.AddCommand(create, update, remove, members, addMember, removeMember)
	return cmd
}

func printStudents(env *Env, students []models.User) error {
	if len(students) == 0 {
		fmt.Fprintln(env.Out, "No students found.")
		return nil
	}

	rows := make([][]string, len(students))
	for i, s := range students {
		pending := ""
		if s.MustChangePassword {
			pending = "yes"
		}
		rows[i] = []string{s.ID, s.Username, s.FullName(), pending}
	}
	return printTable(env.Out, []string{"ID", "USERNAME", "NAME", "PASSWORD RESET"}, rows)
}
