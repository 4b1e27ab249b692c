package resources

import "fmt"

// Decodable turns raw asset bytes into a CPU side payload. It runs on worker
// goroutines and must never touch the graphics device.
type Decodable[P any] interface {
	Decode(raw []byte) (P, error)
}

// DeviceInitializable uploads a payload to the device and destroys what it
// created. Both calls happen on the device thread only.
type DeviceInitializable[P, T any] interface {
	Initialize(payload P) (T, error)
	Destroy(obj T) error
}

// Kind binds the two capabilities of one asset kind under a name. The name is
// the Kind part of every Key loaded through it.
type Kind[P, T any] struct {
	Name     string
	Decoder  Decodable[P]
	Uploader DeviceInitializable[P, T]
}

// Nameable payloads are given the path of their key after decoding, so
// device objects can be named after the asset they came from.
type Nameable interface {
	AssignName(name string)
}

// DecodeFunc adapts a plain function to Decodable.
type DecodeFunc[P any] func(raw []byte) (P, error)

func (f DecodeFunc[P]) Decode(raw []byte) (P, error) {
	return f(raw)
}

// driver is the type erased form of a Kind kept by the despatcher.
type driver interface {
	name() string
	decode(raw []byte) (any, error)
	initialize(payload any) (any, error)
	destroy(obj any) error
}

// producer is satisfied only by drivers whose device object type is exactly T.
type producer[T any] interface {
	driver
	produces() T
}

type kindDriver[P, T any] struct {
	kind Kind[P, T]
}

func (k *kindDriver[P, T]) name() string {
	return k.kind.Name
}

func (k *kindDriver[P, T]) produces() T {
	var zero T
	return zero
}

func (k *kindDriver[P, T]) decode(raw []byte) (any, error) {
	p, err := k.kind.Decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (k *kindDriver[P, T]) initialize(payload any) (any, error) {
	var p P
	if payload != nil {
		var ok bool
		if p, ok = payload.(P); !ok {
			return nil, fmt.Errorf("payload of kind '%s' has unexpected type %T", k.kind.Name, payload)
		}
	}
	obj, err := k.kind.Uploader.Initialize(p)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (k *kindDriver[P, T]) destroy(obj any) error {
	o, ok := obj.(T)
	if !ok {
		return fmt.Errorf("device object of kind '%s' has unexpected type %T", k.kind.Name, obj)
	}
	return k.kind.Uploader.Destroy(o)
}
