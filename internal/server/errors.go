package server

import (
	"context"
	"errors"
	"io/fs"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nainya/annstore/pkg/annotator"
	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/span"
	"github.com/nainya/annstore/pkg/storage"
)

// codeOf classifies an error from the document layers
func codeOf(err error) codes.Code {
	var (
		notFound  *document.NotFoundError
		readOnly  *document.ReadOnlyError
		depErr    *document.DependencyError
		reqErr    *annotator.RequestError
		catErr    *annotator.CategoryError
		splitErr  *annotator.SplitError
		overlap   *span.OverlapError
		rangeErr  *span.RangeError
		integrity *storage.IntegrityError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
		return codes.NotFound
	case errors.As(err, &reqErr), errors.As(err, &overlap), errors.As(err, &rangeErr),
		errors.Is(err, document.ErrEncoding):
		return codes.InvalidArgument
	case errors.As(err, &catErr), errors.As(err, &splitErr), errors.As(err, &depErr),
		errors.As(err, &readOnly):
		return codes.FailedPrecondition
	case errors.Is(err, storage.ErrLockTimeout):
		return codes.Unavailable
	case errors.As(err, &integrity):
		return codes.DataLoss
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

// toStatus converts err into a gRPC status error
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}
