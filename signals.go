package rowmap

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for mapping events.
var (
	SignalFactoryAdded = capitan.NewSignal("rowmap.factory.added", "Mapper factory registered")
	SignalSpecialized  = capitan.NewSignal("rowmap.specialize.complete", "Row mapper specialized for a column set")
)

// Keys for typed event data.
var (
	KeyKind       = capitan.NewStringKey("kind")
	KeyFactory    = capitan.NewStringKey("factory")
	KeyFactories  = capitan.NewIntKey("factories")
	KeyTypeName   = capitan.NewStringKey("type_name")
	KeyColumns    = capitan.NewIntKey("columns")
	KeyProperties = capitan.NewIntKey("properties")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyError      = capitan.NewErrorKey("error")
)

const (
	kindRow    = "row"
	kindColumn = "column"
)

// emitFactoryAdded emits an event when a factory is registered.
func emitFactoryAdded(kind, factory string, total int) {
	capitan.Emit(context.Background(), SignalFactoryAdded,
		KeyKind.Field(kind),
		KeyFactory.Field(factory),
		KeyFactories.Field(total),
	)
}

// EmitSpecialized emits an event when a row mapper finished specializing
// against a column set. Row mapper implementations outside this package
// use it so all specializations report on the same signal.
func EmitSpecialized(ctx context.Context, typeName string, columns, properties int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyColumns.Field(columns),
		KeyProperties.Field(properties),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSpecialized, fields...)
	} else {
		capitan.Emit(ctx, SignalSpecialized, fields...)
	}
}
