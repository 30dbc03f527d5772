package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

var (
	taskKind       string
	taskAssignee   string
	taskPriority   string
	taskDeadline   string
	taskListStatus string
	taskListLimit  int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, list and update coordinator tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Create a task, optionally assigned to an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]interface{}{
			"kind":        taskKind,
			"description": args[0],
			"assigned_to": taskAssignee,
			"priority":    taskPriority,
		}
		if taskDeadline != "" {
			d, err := time.Parse(time.RFC3339, taskDeadline)
			if err != nil {
				return fmt.Errorf("invalid --deadline: %w", err)
			}
			body["deadline"] = d
		}
		var task taskView
		if err := call(cmd.Context(), "POST", "/api/v1/tasks", nil, body, &task); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(task)
		}
		fmt.Printf("Task created successfully!\nTask ID: %s\nStatus: %s\n", task.ID, task.Status)
		if task.AssignedTo != "" {
			fmt.Printf("Assigned to: %s\n", task.AssignedTo)
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if taskAssignee != "" {
			q.Set("assigned_to", taskAssignee)
		}
		if taskListStatus != "" {
			q.Set("status", taskListStatus)
		}
		q.Set("limit", fmt.Sprint(taskListLimit))
		var resp struct {
			Tasks []taskView `json:"tasks"`
		}
		if err := call(cmd.Context(), "GET", "/api/v1/tasks", q, nil, &resp); err != nil {
			return err
		}
		if outputJSON {
			return printJSON(resp)
		}
		for _, t := range resp.Tasks {
			assignee := t.AssignedTo
			if assignee == "" {
				assignee = "-"
			}
			fmt.Printf("%-40s %-11s %-6s %-16s %s\n", t.ID, t.Status, t.Priority, assignee, t.Description)
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [task-id] [status]",
	Short: "Move a task to pending, in_progress, done or cancelled",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var task taskView
		err := call(cmd.Context(), "PATCH", "/api/v1/tasks/"+url.PathEscape(args[0]), nil,
			map[string]string{"status": args[1]}, &task)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(task)
		}
		fmt.Printf("Task %s is now %s\n", task.ID, task.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskUpdateCmd)

	taskCreateCmd.Flags().StringVar(&taskKind, "kind", "", "task kind (default general)")
	taskCreateCmd.Flags().StringVar(&taskAssignee, "assign", "", "agent ID to assign the task to")
	taskCreateCmd.Flags().StringVar(&taskPriority, "priority", "", "low, medium or high")
	taskCreateCmd.Flags().StringVar(&taskDeadline, "deadline", "", "deadline in RFC3339")

	taskListCmd.Flags().StringVar(&taskAssignee, "assigned-to", "", "only tasks assigned to this agent")
	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "comma separated statuses")
	taskListCmd.Flags().IntVar(&taskListLimit, "limit", 50, "maximum number of tasks")
}
