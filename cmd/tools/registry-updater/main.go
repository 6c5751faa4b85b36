// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"mentormatch-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd(os.Args[2:])
	case "update":
		runUpdate(os.Args[2:])
	case "seed":
		runSeed(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "help":
		help()
	default:
		help()
		os.Exit(1)
	}
}

func runAdd(args []string) {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	path := addCmd.String("path", defaultRegistryPath, "Path to registry file")
	id := addCmd.String("id", "", "Activity ID (e.g., find-candidates)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Find Candidates)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "mentorship", "Category")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., find-candidates)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	addCmd.Parse(args)

	if *id == "" || *displayName == "" || *description == "" || *taskType == "" {
		fmt.Println("Error: id, displayName, description, and taskType are required for add.")
		addCmd.Usage()
		os.Exit(1)
	}

	activity := registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *implStatus,
		InputSchema:          map[string]interface{}{},
		OutputSchema:         map[string]interface{}{},
		ErrorCodes:           []string{},
		Timeout:              "30s",
		Retries:              0,
		Workflows:            []string{},
		Tags:                 []string{},
	}
	if err := addActivity(*path, &activity); err != nil {
		fmt.Printf("Error adding activity: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added activity: %s\n", *id)
}

func runUpdate(args []string) {
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	path := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	id := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.Parse(args)

	if *id == "" || *field == "" || *value == "" {
		fmt.Println("Error: id, field, and value are required for update.")
		updateCmd.Usage()
		os.Exit(1)
	}
	if err := updateActivity(*path, *id, *field, *value); err != nil {
		fmt.Printf("Error updating activity: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", *id, *field, *value)
}

func runSeed(args []string) {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	path := seedCmd.String("path", defaultRegistryPath, "Path to registry file")
	force := seedCmd.Bool("force", false, "Overwrite an existing registry file")
	seedCmd.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Printf("Registry already exists at %s (use -force to overwrite).\n", *path)
		os.Exit(1)
	}

	reg := seedRegistry()
	if err := registry.SaveRegistry(reg, *path); err != nil {
		fmt.Printf("Error seeding registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded registry with %d mentorship activities at %s\n", len(reg.Activities), *path)
}

func runValidate(args []string) {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	path := validateCmd.String("path", defaultRegistryPath, "Path to registry file")
	validateCmd.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		fmt.Printf("Registry validation failed: %v\n", err)
		os.Exit(1)
	}
	if err := reg.Validate(); err != nil {
		fmt.Printf("Registry validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
}

func addActivity(path string, activity *registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if os.IsNotExist(err) {
			reg = &registry.ActivityRegistry{
				Version:     "1.0.0",
				LastUpdated: time.Now().Format(time.RFC3339),
				Activities:  []registry.Activity{},
			}
		} else {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	for _, existing := range reg.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
	}

	reg.Activities = append(reg.Activities, *activity)
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			found = true
			switch field {
			case "status":
				reg.Activities[i].ImplementationStatus = value
			case "version":
				reg.Activities[i].Version = value
			case "displayName":
				reg.Activities[i].DisplayName = value
			case "description":
				reg.Activities[i].Description = value
			case "category":
				reg.Activities[i].Category = value
			case "taskType":
				reg.Activities[i].TaskType = value
			case "timeout":
				reg.Activities[i].Timeout = value
			case "retries":
				retries, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("invalid retries value: %w", err)
				}
				reg.Activities[i].Retries = retries
			default:
				return fmt.Errorf("unknown field: %s", field)
			}
			break
		}
	}

	if !found {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}

// seedRegistry builds the registry for the mentor matching pipeline.
func seedRegistry() *registry.ActivityRegistry {
	return &registry.ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: time.Now().Format(time.RFC3339),
		Activities: []registry.Activity{
			{
				ID:                   "derive-preferences",
				DisplayName:          "Derive Preferences",
				Description:          "Derives matching preferences from the mentee profile, with defaults when the AI oracle is unavailable",
				Category:             "mentorship",
				Version:              "1.0.0",
				TaskType:             "derive-preferences",
				ImplementationStatus: "completed",
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{"PREFERENCE_DERIVATION_FAILED"},
				Timeout:              "30s",
				Retries:              0,
				Workflows:            []string{"mentor-matching"},
				Tags:                 []string{"ai", "preferences"},
			},
			{
				ID:                   "find-candidates",
				DisplayName:          "Find Candidates",
				Description:          "Retrieves available mentors in the mentee's state, excluding existing relationships",
				Category:             "mentorship",
				Version:              "1.0.0",
				TaskType:             "find-candidates",
				ImplementationStatus: "completed",
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{"MENTEE_NOT_FOUND", "MENTEE_PROFILE_INCOMPLETE", "MENTOR_QUERY_FAILED", "MENTOR_QUERY_TIMEOUT", "RELATIONSHIP_QUERY_FAILED"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"mentor-matching"},
				Tags:                 []string{"postgres", "redis", "elasticsearch"},
			},
			{
				ID:                   "score-candidates",
				DisplayName:          "Score Candidates",
				Description:          "Scores candidates on location tier and skill overlap, with best-effort AI scores",
				Category:             "mentorship",
				Version:              "1.0.0",
				TaskType:             "score-candidates",
				ImplementationStatus: "completed",
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{"SCORING_FAILED"},
				Timeout:              "60s",
				Retries:              0,
				Workflows:            []string{"mentor-matching"},
				Tags:                 []string{"ai", "scoring"},
			},
			{
				ID:                   "rank-mentors",
				DisplayName:          "Rank Mentors",
				Description:          "Blends scores with preference weights and returns the top mentors in the best location tier",
				Category:             "mentorship",
				Version:              "1.0.0",
				TaskType:             "rank-mentors",
				ImplementationStatus: "completed",
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{"RANKING_FAILED"},
				Timeout:              "30s",
				Retries:              0,
				Workflows:            []string{"mentor-matching"},
				Tags:                 []string{"ranking"},
			},
			{
				ID:                   "notify-matches",
				DisplayName:          "Notify Matches",
				Description:          "Sends the mentee an email and optional SMS when a match list is ready",
				Category:             "mentorship",
				Version:              "1.0.0",
				TaskType:             "notify-matches",
				ImplementationStatus: "completed",
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{"MENTEE_NOT_FOUND", "NOTIFICATION_SEND_FAILED"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"mentor-matching"},
				Tags:                 []string{"ses", "sns", "notification"},
			},
		},
	}
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  seed     Create the registry with the mentorship pipeline activities
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater seed -path configs/activity-registry.json
  registry-updater add -id find-candidates -displayName "Find Candidates" -description "Retrieves available mentors" -taskType find-candidates
  registry-updater update -id find-candidates -field status -value completed
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.`)
}
