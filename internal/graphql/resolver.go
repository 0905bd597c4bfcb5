package graphql

import (
	"context"
	"errors"
	"fmt"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/auth"
	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/services"
)

var (
	errUnauthorized       = errors.New("Unauthorized")
	errInvalidCredentials = errors.New("Invalid credentials")
	errUserExists         = errors.New("User already exists")
)

// OnlineCounter reports connected real-time clients.
type OnlineCounter interface {
	OnlineCount() int
}

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	auth   *services.AuthService
	users  services.UserServiceProvider
	tasks  services.TaskServiceProvider
	online OnlineCounter
	secure bool
}

// NewResolver creates a new root Resolver. secure marks session cookies Secure.
func NewResolver(authSvc *services.AuthService, users services.UserServiceProvider, tasks services.TaskServiceProvider, online OnlineCounter, secure bool) *Resolver {
	return &Resolver{auth: authSvc, users: users, tasks: tasks, online: online, secure: secure}
}

func currentUser(ctx context.Context) (models.User, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return models.User{}, errUnauthorized
	}
	return models.User{ID: claims.UserID, Username: claims.Username}, nil
}

// Me returns the signed-in user, or null.
func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, nil
	}
	user, err := r.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) Tasks(ctx context.Context, args struct {
	Filter string
	Time   string
}) ([]*taskResolver, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err := r.tasks.ListTasks(ctx, user.ID, models.TaskFilter(args.Filter), models.TimeFilter(args.Time))
	if err != nil {
		return nil, internalError("list tasks", err)
	}
	return taskResolvers(tasks), nil
}

func (r *Resolver) Task(ctx context.Context, args struct{ ID graphqlgo.ID }) (*taskResolver, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	task, err := r.tasks.GetTask(ctx, string(args.ID), user.ID)
	if errors.Is(err, services.ErrTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError("get task", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) OnlineUsers() int32 {
	if r.online == nil {
		return 0
	}
	return int32(r.online.OnlineCount())
}

func (r *Resolver) Register(ctx context.Context, args struct{ Username, Password string }) (*userResolver, error) {
	if args.Username == "" || args.Password == "" {
		return nil, errors.New("username and password required")
	}
	user, token, err := r.auth.Register(ctx, args.Username, args.Password)
	if errors.Is(err, services.ErrUserExists) {
		return nil, errUserExists
	}
	if err != nil {
		return nil, internalError("register", err)
	}
	if w := responseWriter(ctx); w != nil {
		r.auth.Tokens().SetCookie(w, token, r.secure)
	}
	return &userResolver{u: user}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct{ Username, Password string }) (*loginResultResolver, error) {
	user, token, err := r.auth.Login(ctx, args.Username, args.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, internalError("login", err)
	}
	if w := responseWriter(ctx); w != nil {
		r.auth.Tokens().SetCookie(w, token, r.secure)
	}
	return &loginResultResolver{u: user}, nil
}

func (r *Resolver) Logout(ctx context.Context) bool {
	r.auth.Logout(ctx, requestToken(ctx))
	if w := responseWriter(ctx); w != nil {
		auth.ClearCookie(w, r.secure)
	}
	return true
}

func (r *Resolver) CreateTask(ctx context.Context, args struct{ Input taskInput }) (*taskResolver, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	input := models.TaskInput{Title: args.Input.Title}
	if d := args.Input.Description; d != nil && *d != "" {
		input.Description = d
	}
	if args.Input.Status != nil {
		input.Status = enumToStatus[*args.Input.Status]
	}
	if d := args.Input.DueDate; d != nil && *d != "" {
		due, err := models.ParseDate(*d)
		if err != nil {
			return nil, errors.New("Invalid due date")
		}
		input.DueDate = &due
	}

	task, err := r.tasks.CreateTask(ctx, user, input)
	if err != nil {
		return nil, taskError("create task", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) UpdateTask(ctx context.Context, args struct {
	ID    graphqlgo.ID
	Input taskInput
}) (*taskResolver, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	title := args.Input.Title
	patch := models.TaskPatch{Title: &title}
	if d := args.Input.Description; d != nil {
		if *d == "" {
			patch.ClearDescription = true
		} else {
			patch.Description = d
		}
	}
	if args.Input.Status != nil {
		status := enumToStatus[*args.Input.Status]
		patch.Status = &status
	}
	if d := args.Input.DueDate; d != nil {
		if *d == "" {
			patch.ClearDueDate = true
		} else {
			due, err := models.ParseDate(*d)
			if err != nil {
				return nil, errors.New("Invalid due date")
			}
			patch.DueDate = &due
		}
	}

	task, err := r.tasks.UpdateTask(ctx, string(args.ID), user.ID, patch)
	if errors.Is(err, services.ErrTaskNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, taskError("update task", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) DeleteTask(ctx context.Context, args struct{ ID graphqlgo.ID }) (bool, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return false, err
	}
	err = r.tasks.DeleteTask(ctx, string(args.ID), user.ID)
	if errors.Is(err, services.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, internalError("delete task", err)
	}
	return true, nil
}

func (r *Resolver) DeleteAttachment(ctx context.Context, args struct {
	TaskID   graphqlgo.ID
	Filename string
}) (bool, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return false, err
	}
	err = r.tasks.DeleteAttachment(ctx, string(args.TaskID), user.ID, args.Filename)
	if errors.Is(err, services.ErrAttachmentNotFound) {
		return false, nil
	}
	if errors.Is(err, services.ErrBlobDelete) {
		return false, errors.New("Failed to delete file")
	}
	if err != nil {
		return false, internalError("delete attachment", err)
	}
	return true, nil
}

func taskError(op string, err error) error {
	switch {
	case errors.Is(err, services.ErrTitleRequired):
		return errors.New("Title is required")
	case errors.Is(err, services.ErrInvalidStatus):
		return errors.New("Invalid status")
	}
	return internalError(op, err)
}

// internalError logs the cause and hides it from the client.
func internalError(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("GraphQL resolver failed")
	return fmt.Errorf("failed to %s", op)
}
