package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "tenant":
		handleTenant(args)
	case "user":
		handleUser(args)
	case "role":
		handleRole(args)
	case "activity":
		showActivity(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orgcore tenant <tree|create|rename|grant|permissions|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "tree":
		showTree(args[1:])
	case "create":
		createTenant(args[1:])
	case "rename":
		renameTenant(args[1:])
	case "grant":
		grantPermissions(args[1:])
	case "permissions":
		showPermissions(args[1:])
	case "delete":
		deleteTenant(args[1:])
	default:
		fmt.Printf("unknown tenant command: %s\n", subCmd)
	}
}

func handleUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orgcore user <list|create|relocate>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listUsers(args[1:])
	case "create":
		createUser(args[1:])
	case "relocate":
		relocateUser(args[1:])
	default:
		fmt.Printf("unknown user command: %s\n", subCmd)
	}
}

func handleRole(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orgcore role <list|create>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listRoles(args[1:])
	case "create":
		createRole(args[1:])
	default:
		fmt.Printf("unknown role command: %s\n", subCmd)
	}
}

// Tenant commands

func showTree(args []string) {
	_ = args
	var forest []treeNode
	if err := apiGet("/tenants/tree", &forest); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(forest) == 0 {
		fmt.Println("no accessible tenants")
		return
	}
	for _, root := range forest {
		printTree(root, 0)
	}
}

type treeNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []treeNode `json:"children"`
}

func printTree(node treeNode, depth int) {
	fmt.Printf("%s%s  (%s)\n", strings.Repeat("  ", depth), node.Name, node.ID)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func createTenant(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "tenant name")
	parent := fs.String("parent", "", "parent tenant ID (empty creates an organization root)")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"name": *name, "parent_id": *parent}
	var created map[string]any
	if err := apiSend("POST", "/tenants", payload, &created); err != nil {
		fmt.Printf("✗ Create failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Tenant created: %v\n", created["id"])
}

func renameTenant(args []string) {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	id := fs.String("id", "", "tenant ID")
	name := fs.String("name", "", "new name")
	fs.Parse(args)

	if *id == "" || *name == "" {
		fmt.Println("Error: id and name are required")
		fs.PrintDefaults()
		return
	}

	if err := apiSend("PATCH", "/tenants/"+*id, map[string]string{"name": *name}, nil); err != nil {
		fmt.Printf("✗ Rename failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Tenant renamed: %s\n", *name)
}

func grantPermissions(args []string) {
	fs := flag.NewFlagSet("grant", flag.ExitOnError)
	id := fs.String("id", "", "tenant ID")
	perms := fs.String("permissions", "", "comma-separated permission keys (replaces the current set)")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	keys := []string{}
	for _, part := range strings.Split(*perms, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	payload := map[string][]string{"permissions": keys}
	if err := apiSend("PUT", "/tenants/"+*id+"/permissions", payload, nil); err != nil {
		fmt.Printf("✗ Grant failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Permissions updated: %s\n", strings.Join(keys, ", "))
}

func showPermissions(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orgcore tenant permissions <tenant-id>")
		return
	}
	var result struct {
		TenantID    string   `json:"tenant_id"`
		Permissions []string `json:"permissions"`
	}
	if err := apiGet("/tenants/"+args[0]+"/permissions", &result); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(result.Permissions) == 0 {
		fmt.Println("no effective permissions")
		return
	}
	for _, p := range result.Permissions {
		fmt.Println(p)
	}
}

func deleteTenant(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "tenant ID")
	cascade := fs.Bool("cascade-direct", false, "delete an organization root with its direct members (superuser only)")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	path := "/tenants/" + *id
	if *cascade {
		path += "?mode=cascade-direct"
	}
	if err := apiSend("DELETE", path, nil, nil); err != nil {
		fmt.Printf("✗ Delete failed: %v\n", err)
		return
	}
	fmt.Println("✓ Tenant deleted")
}

// User commands

func listUsers(args []string) {
	_ = args
	var users []map[string]any
	if err := apiGet("/users", &users); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tTENANT")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["username"], u["email"], u["tenant_id"])
	}
	w.Flush()
}

func createUser(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	tenant := fs.String("tenant", "", "tenant ID")
	email := fs.String("email", "", "user email")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	roles := fs.String("roles", "", "comma-separated roles (default: member)")
	fs.Parse(args)

	if *tenant == "" || *email == "" || *username == "" || *password == "" {
		fmt.Println("Error: tenant, email, username, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]any{
		"tenant_id": *tenant,
		"email":     *email,
		"username":  *username,
		"password":  *password,
	}
	if *roles != "" {
		payload["roles"] = strings.Split(*roles, ",")
	}
	var created map[string]any
	if err := apiSend("POST", "/users", payload, &created); err != nil {
		fmt.Printf("✗ Create failed: %v\n", err)
		return
	}
	fmt.Printf("✓ User created: %v\n", created["id"])
}

func relocateUser(args []string) {
	fs := flag.NewFlagSet("relocate", flag.ExitOnError)
	id := fs.String("id", "", "user ID")
	tenant := fs.String("tenant", "", "destination tenant ID")
	fs.Parse(args)

	if *id == "" || *tenant == "" {
		fmt.Println("Error: id and tenant are required")
		fs.PrintDefaults()
		return
	}

	if err := apiSend("POST", "/users/"+*id+"/relocate", map[string]string{"tenant_id": *tenant}, nil); err != nil {
		fmt.Printf("✗ Relocate failed: %v\n", err)
		return
	}
	fmt.Println("✓ User relocated")
}

// Role commands

func listRoles(args []string) {
	_ = args
	var roles []map[string]any
	if err := apiGet("/roles", &roles); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tORGANIZATION")
	for _, r := range roles {
		fmt.Fprintf(w, "%v\t%v\t%v\n", r["id"], r["name"], r["organization_root_id"])
	}
	w.Flush()
}

func createRole(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "role name")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	var created map[string]any
	if err := apiSend("POST", "/roles", map[string]string{"name": *name}, &created); err != nil {
		fmt.Printf("✗ Create failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Role created: %v\n", created["id"])
}

func showActivity(args []string) {
	fs := flag.NewFlagSet("activity", flag.ExitOnError)
	limit := fs.Int("limit", 50, "number of entries")
	fs.Parse(args)

	var entries []map[string]any
	if err := apiGet(fmt.Sprintf("/activity?limit=%d", *limit), &entries); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tUSER\tTENANT\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", e["timestamp"], e["action"], e["user_id"], e["tenant_id"], e["status"])
	}
	w.Flush()
}

// Helper functions

func apiGet(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, getAPIURL()+path, nil)
	if err != nil {
		return err
	}
	return doRequest(req, out)
}

func apiSend(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return doRequest(req, out)
}

func doRequest(req *http.Request, out any) error {
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getAPIURL() string {
	if url := os.Getenv("ORGCORE_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func addAuthHeader(req *http.Request) {
	if token := os.Getenv("ORGCORE_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`orgcore CLI

Usage:
  orgcore <command> [options]

Commands:
  tenant    Tenant hierarchy operations (tree, create, rename, grant, permissions, delete)
  user      User operations (list, create, relocate)
  role      Role operations (list, create)
  activity  Recent admin activity (superuser only)
  help      Show this help message

Environment Variables:
  ORGCORE_API     API endpoint (default: http://localhost:8080/api)
  ORGCORE_TOKEN   Bearer token attached to every request

Examples:
  orgcore tenant tree
  orgcore tenant create -name "Field Ops" -parent 4f1c...
  orgcore tenant grant -id 4f1c... -permissions todos,photo_posts
  orgcore user create -tenant 4f1c... -email op@example.com -username op -password secret123
`)
}
