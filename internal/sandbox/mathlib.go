package sandbox

import (
	"math"

	"github.com/dop251/goja"

	"sketchscan/internal/registry"
)

type mathFunc func(p *pass, args []goja.Value) goja.Value

// mathFuncs are the forwarded implementations of registry math names.
var mathFuncs = map[string]mathFunc{
	"abs":   unary(math.Abs),
	"ceil":  unary(math.Ceil),
	"floor": unary(math.Floor),
	"sqrt":  unary(math.Sqrt),
	"exp":   unary(math.Exp),
	"log":   unary(math.Log),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"sq":    unary(func(x float64) float64 { return x * x }),
	"radians": unary(func(x float64) float64 {
		return x * math.Pi / 180
	}),
	"degrees": unary(func(x float64) float64 {
		return x * 180 / math.Pi
	}),
	"round": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 2)
		scale := math.Pow(10, a[1])
		return p.vm.ToValue(math.Round(a[0]*scale) / scale)
	},
	"pow": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 2)
		return p.vm.ToValue(math.Pow(a[0], a[1]))
	},
	"atan2": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 2)
		return p.vm.ToValue(math.Atan2(a[0], a[1]))
	},
	"min": func(p *pass, args []goja.Value) goja.Value {
		return p.vm.ToValue(fold(p, args, math.Inf(1), math.Min))
	},
	"max": func(p *pass, args []goja.Value) goja.Value {
		return p.vm.ToValue(fold(p, args, math.Inf(-1), math.Max))
	},
	"constrain": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 3)
		return p.vm.ToValue(math.Max(a[1], math.Min(a[0], a[2])))
	},
	"lerp": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 3)
		return p.vm.ToValue(a[0] + (a[1]-a[0])*a[2])
	},
	"map": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 5)
		v := remap(a[0], a[1], a[2], a[3], a[4])
		if len(args) > 5 && args[5].ToBoolean() {
			lo, hi := math.Min(a[3], a[4]), math.Max(a[3], a[4])
			v = math.Max(lo, math.Min(v, hi))
		}
		return p.vm.ToValue(v)
	},
	"norm": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 3)
		return p.vm.ToValue(remap(a[0], a[1], a[2], 0, 1))
	},
	"mag": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 2)
		return p.vm.ToValue(math.Hypot(a[0], a[1]))
	},
	"dist": func(p *pass, args []goja.Value) goja.Value {
		if len(args) >= 6 {
			a := floatArgs(args, 6)
			return p.vm.ToValue(math.Sqrt(sq(a[3]-a[0]) + sq(a[4]-a[1]) + sq(a[5]-a[2])))
		}
		a := floatArgs(args, 4)
		return p.vm.ToValue(math.Hypot(a[2]-a[0], a[3]-a[1]))
	},
	"random": func(p *pass, args []goja.Value) goja.Value {
		if len(args) == 1 {
			if arr, ok := args[0].Export().([]any); ok {
				if len(arr) == 0 {
					return goja.Undefined()
				}
				return p.vm.ToValue(arr[p.rng.Intn(len(arr))])
			}
		}
		a := floatArgs(args, 2)
		lo, hi := 0.0, 1.0
		switch len(args) {
		case 1:
			hi = a[0]
		case 0:
		default:
			lo, hi = a[0], a[1]
		}
		return p.vm.ToValue(lo + p.rng.Float64()*(hi-lo))
	},
	"randomSeed": func(p *pass, args []goja.Value) goja.Value {
		p.rng.Seed(int64(floatArgs(args, 1)[0]))
		return goja.Undefined()
	},
	"noise": func(p *pass, args []goja.Value) goja.Value {
		a := floatArgs(args, 3)
		return p.vm.ToValue(noise(p.opts.Seed, a[0], a[1], a[2]))
	},
	"noiseSeed": func(p *pass, args []goja.Value) goja.Value {
		return goja.Undefined()
	},
	"createVector": func(p *pass, args []goja.Value) goja.Value {
		return p.vector(floatArgs(args, 3))
	},
}

// mathStub returns the stub for a math function: the forwarded implementation, or
// an inert one returning 0 when forwarding is off.
func (p *pass) mathStub(e registry.Entry) func(goja.FunctionCall) goja.Value {
	impl, ok := mathFuncs[e.Name]
	if !ok || !p.opts.ForwardMath {
		return func(goja.FunctionCall) goja.Value {
			if e.Canonical == "vector" {
				return p.handle()
			}
			return p.vm.ToValue(0)
		}
	}
	return func(call goja.FunctionCall) goja.Value {
		return impl(p, call.Arguments)
	}
}

// vector builds a plain {x, y, z} object with the common vector methods.
func (p *pass) vector(c []float64) *goja.Object {
	v := p.vm.NewObject()
	_ = v.Set("x", c[0])
	_ = v.Set("y", c[1])
	_ = v.Set("z", c[2])

	self := func() []float64 {
		return []float64{
			v.Get("x").ToFloat(), v.Get("y").ToFloat(), v.Get("z").ToFloat(),
		}
	}
	other := func(args []goja.Value) []float64 {
		if len(args) == 1 {
			if o, ok := args[0].(*goja.Object); ok {
				return []float64{floatOr(o.Get("x")), floatOr(o.Get("y")), floatOr(o.Get("z"))}
			}
			s := args[0].ToFloat()
			return []float64{s, s, s}
		}
		return floatArgs(args, 3)
	}
	assign := func(c []float64) goja.Value {
		_ = v.Set("x", c[0])
		_ = v.Set("y", c[1])
		_ = v.Set("z", c[2])
		return v
	}
	zip := func(f func(a, b float64) float64) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			a, b := self(), other(call.Arguments)
			return assign([]float64{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2])})
		}
	}
	length := func() float64 {
		a := self()
		return math.Sqrt(sq(a[0]) + sq(a[1]) + sq(a[2]))
	}
	scaleTo := func(m float64) goja.Value {
		a, l := self(), length()
		if l == 0 {
			return v
		}
		return assign([]float64{a[0] / l * m, a[1] / l * m, a[2] / l * m})
	}

	_ = v.Set("add", zip(func(a, b float64) float64 { return a + b }))
	_ = v.Set("sub", zip(func(a, b float64) float64 { return a - b }))
	_ = v.Set("mult", zip(func(a, b float64) float64 { return a * b }))
	_ = v.Set("div", zip(func(a, b float64) float64 {
		if b == 0 {
			return a
		}
		return a / b
	}))
	_ = v.Set("set", func(call goja.FunctionCall) goja.Value { return assign(other(call.Arguments)) })
	_ = v.Set("copy", func(goja.FunctionCall) goja.Value { return p.vector(self()) })
	_ = v.Set("mag", func(goja.FunctionCall) goja.Value { return p.vm.ToValue(length()) })
	_ = v.Set("normalize", func(goja.FunctionCall) goja.Value { return scaleTo(1) })
	_ = v.Set("setMag", func(call goja.FunctionCall) goja.Value { return scaleTo(floatArgs(call.Arguments, 1)[0]) })
	_ = v.Set("limit", func(call goja.FunctionCall) goja.Value {
		if m := floatArgs(call.Arguments, 1)[0]; length() > m {
			return scaleTo(m)
		}
		return v
	})
	_ = v.Set("heading", func(goja.FunctionCall) goja.Value {
		a := self()
		return p.vm.ToValue(math.Atan2(a[1], a[0]))
	})
	_ = v.Set("dist", func(call goja.FunctionCall) goja.Value {
		a, b := self(), other(call.Arguments)
		return p.vm.ToValue(math.Sqrt(sq(b[0]-a[0]) + sq(b[1]-a[1]) + sq(b[2]-a[2])))
	})
	return v
}

// floatArgs converts the first n arguments to numbers; missing ones are 0.
func floatArgs(args []goja.Value, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(args); i++ {
		out[i] = floatOr(args[i])
	}
	return out
}

func floatOr(v goja.Value) float64 {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return v.ToFloat()
}

func unary(f func(float64) float64) mathFunc {
	return func(p *pass, args []goja.Value) goja.Value {
		return p.vm.ToValue(f(floatArgs(args, 1)[0]))
	}
}

// fold reduces numeric arguments, or the elements of a single array argument.
func fold(p *pass, args []goja.Value, init float64, f func(a, b float64) float64) float64 {
	if len(args) == 1 {
		if arr, ok := args[0].(*goja.Object); ok && arr.ClassName() == "Array" {
			n := int(arr.Get("length").ToInteger())
			args = make([]goja.Value, n)
			for i := 0; i < n; i++ {
				args[i] = arr.Get(p.vm.ToValue(i).String())
			}
		}
	}
	acc := init
	for _, a := range args {
		acc = f(acc, floatOr(a))
	}
	return acc
}

func remap(v, start1, stop1, start2, stop2 float64) float64 {
	if stop1 == start1 {
		return start2
	}
	return start2 + (v-start1)/(stop1-start1)*(stop2-start2)
}

func sq(x float64) float64 { return x * x }

// noise is a deterministic smooth value in [0, 1) for the given coordinates.
// It only needs to be stable across runs, not to match any reference noise.
func noise(seed int64, x, y, z float64) float64 {
	s := float64(seed%9973) * 0.618
	v := math.Sin(x*1.7+s)*0.5 + math.Sin(y*2.3+s*0.5)*0.3 + math.Sin(z*3.1+s*0.25)*0.2
	return (v + 1) / 2 * 0.999
}
