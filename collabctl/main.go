package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"freehost.io/collab/collab"
)

const CollabCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Collab control.

The default url is:
    api_url: http://localhost:8080

Usage:
    collabctl signup [--api_url=<api_url>]
        --username=<username>
        --email=<email>
        [--password=<password>]
        [--no_notify]
    collabctl login [--api_url=<api_url>]
        --username=<username>
        [--password=<password>]
    collabctl apps [--api_url=<api_url>] --user=<user>
    collabctl create-app [--api_url=<api_url>] --jwt=<jwt>
        --name=<name>
        [--description=<description>]
        [--visibility=<visibility>]
    collabctl delete-app [--api_url=<api_url>] --jwt=<jwt> <app_id>
    collabctl comment [--api_url=<api_url>] --jwt=<jwt> <app_id> <text>
    collabctl add-collaborator [--api_url=<api_url>] --jwt=<jwt> <app_id>
        --username=<username>
        [--role=<role>]

Options:
    -h --help                      Show this screen.
    --version                      Show version.
    --api_url=<api_url>
    --username=<username>
    --email=<email>
    --password=<password>
    --no_notify                    Opt out of event notifications.
    --user=<user>
    --name=<name>
    --description=<description>
    --visibility=<visibility>      public, unlisted or private [default: public].
    --role=<role>                  read, write or admin [default: read].
    --jwt=<jwt>                    Your session token from login.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], CollabCtlVersion)
	if err != nil {
		panic(err)
	}

	if signup_, _ := opts.Bool("signup"); signup_ {
		signup(opts)
	} else if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if apps_, _ := opts.Bool("apps"); apps_ {
		apps(opts)
	} else if createApp_, _ := opts.Bool("create-app"); createApp_ {
		createApp(opts)
	} else if deleteApp_, _ := opts.Bool("delete-app"); deleteApp_ {
		deleteApp(opts)
	} else if comment_, _ := opts.Bool("comment"); comment_ {
		comment(opts)
	} else if addCollaborator_, _ := opts.Bool("add-collaborator"); addCollaborator_ {
		addCollaborator(opts)
	}
}

const DefaultApiUrl = "http://localhost:8080"

func newApi(opts docopt.Opts) *collab.FreehostApi {
	apiUrl := DefaultApiUrl
	if apiUrlAny := opts["--api_url"]; apiUrlAny != nil {
		apiUrl = apiUrlAny.(string)
	}
	api := collab.NewFreehostApiWithContext(context.Background(), apiUrl)
	if jwtAny := opts["--jwt"]; jwtAny != nil {
		api.SetToken(jwtAny.(string))
	}
	return api
}

func password(opts docopt.Opts) string {
	if passwordAny := opts["--password"]; passwordAny != nil {
		return passwordAny.(string)
	}
	fmt.Print("Enter password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		panic(err)
	}
	fmt.Printf("\n")
	return string(passwordBytes)
}

func signup(opts docopt.Opts) {
	api := newApi(opts)

	noNotify, _ := opts.Bool("--no_notify")
	notify := !noNotify

	callback, channel := collab.NewBlockingApiCallback[*collab.SignupResult]()
	api.Signup(&collab.SignupArgs{
		Username:       opts["--username"].(string),
		Email:          opts["--email"].(string),
		Password:       password(opts),
		NotifyOnEvents: &notify,
	}, callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("signup error: %s", result.Error)
	}
	Out.Printf("signed up: %s", result.Result.User.Username)
}

func login(opts docopt.Opts) {
	api := newApi(opts)

	result, err := api.LoginSync(&collab.LoginArgs{
		Username: opts["--username"].(string),
		Password: password(opts),
	})
	if err != nil {
		Err.Fatalf("login error: %s", err)
	}
	Out.Printf("token: %s", result.Token)
}

func apps(opts docopt.Opts) {
	api := newApi(opts)

	callback, channel := collab.NewBlockingApiCallback[*[]*collab.App]()
	api.GetApps(opts["--user"].(string), callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("apps error: %s", result.Error)
	}
	for _, app := range *result.Result {
		Out.Printf("%s  %s  %s  %s", app.Id, app.Name, app.Visibility, app.Url)
	}
}

func createApp(opts docopt.Opts) {
	api := newApi(opts)

	var description string
	if descriptionAny := opts["--description"]; descriptionAny != nil {
		description = descriptionAny.(string)
	}

	callback, channel := collab.NewBlockingApiCallback[*collab.App]()
	api.CreateApp(&collab.CreateAppArgs{
		Name:        opts["--name"].(string),
		Description: description,
		Visibility:  collab.Visibility(opts["--visibility"].(string)),
	}, callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("create-app error: %s", result.Error)
	}
	Out.Printf("created %s at %s", result.Result.Id, result.Result.Url)
}

func deleteApp(opts docopt.Opts) {
	api := newApi(opts)

	callback, channel := collab.NewBlockingApiCallback[*collab.DeleteAppResult]()
	api.DeleteApp(&collab.DeleteAppArgs{
		AppId: opts["<app_id>"].(string),
	}, callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("delete-app error: %s", result.Error)
	}
	Out.Printf("deleted")
}

func comment(opts docopt.Opts) {
	api := newApi(opts)

	callback, channel := collab.NewBlockingApiCallback[*collab.Comment]()
	api.PostComment(&collab.PostCommentArgs{
		AppId: opts["<app_id>"].(string),
		Text:  opts["<text>"].(string),
	}, callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("comment error: %s", result.Error)
	}
	Out.Printf("comment %s at %s", result.Result.Id, result.Result.Timestamp)
}

func addCollaborator(opts docopt.Opts) {
	api := newApi(opts)

	callback, channel := collab.NewBlockingApiCallback[*collab.Collaborator]()
	api.AddCollaborator(&collab.AddCollaboratorArgs{
		AppId:    opts["<app_id>"].(string),
		Username: opts["--username"].(string),
		Role:     collab.Role(opts["--role"].(string)),
	}, callback)

	result := <-channel
	if result.Error != nil {
		Err.Fatalf("add-collaborator error: %s", result.Error)
	}
	Out.Printf("added %s as %s", result.Result.Username, result.Result.Role)
}
