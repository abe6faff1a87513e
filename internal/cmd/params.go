package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noiseloop/internal/config"
)

type flagBinding struct {
	key  string
	flag string
}

// paramBindings maps the animation parameter flags onto their config keys.
var paramBindings = []flagBinding{
	{"render.width", "width"},
	{"render.height", "height"},
	{"render.frames", "frames"},
	{"render.radius", "radius"},
	{"render.scale", "scale"},
	{"render.shape", "shape"},
	{"render.repeat", "repeat"},
	{"render.noise", "noise"},
	{"render.seed", "seed"},
	{"render.octaves", "octaves"},
	{"render.lacunarity", "lacunarity"},
	{"render.persistence", "persistence"},
	{"render.supersample", "supersample"},
	{"render.soften", "soften"},
}

// addParamFlags registers the animation parameter flags with the defaults
// from config.Defaults.
func addParamFlags(flags *pflag.FlagSet) {
	d := config.Defaults()

	flags.Int("width", d.Width, "Frame width in pixels")
	flags.Int("height", d.Height, "Frame height in pixels")
	flags.IntP("frames", "n", d.Frames, "Number of frames in one loop")
	flags.Float64("radius", d.Radius, "Radius of the time circle; larger values move faster")
	flags.Float64("scale", d.Scale, "Spatial scale of the sampled noise domain")
	flags.String("shape", d.Shape.String(), "Silhouette mask: circle or piriform")
	flags.String("repeat", d.Repeat.String(), "Playback policy: once or infinite")
	flags.String("noise", d.Noise.Algorithm, "Noise algorithm: simplex, opensimplex or perlin")
	flags.Int64("seed", d.Noise.Seed, "Deterministic noise seed")
	flags.Int("octaves", d.Noise.Octaves, "fBm octaves (1 disables fBm)")
	flags.Float64("lacunarity", d.Noise.Lacunarity, "fBm frequency multiplier per octave")
	flags.Float64("persistence", d.Noise.Persistence, "fBm amplitude multiplier per octave")
	flags.Int("supersample", d.Supersample, "Sample at N× resolution and downscale (1 = off)")
	flags.Float64("soften", d.Soften, "Gaussian blur sigma applied to each frame (0 = off)")
}

// bindFlags binds flags of the running command to their config keys. It runs
// at execution time so commands sharing keys never shadow each other.
func bindFlags(cmd *cobra.Command, bindings []flagBinding) error {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", bf.flag, err)
		}
	}
	return nil
}

// paramsFromConfig reads and validates the animation parameters.
func paramsFromConfig() (config.Params, error) {
	shape, err := config.ParseShape(viper.GetString("render.shape"))
	if err != nil {
		return config.Params{}, err
	}
	repeat, err := config.ParseRepeat(viper.GetString("render.repeat"))
	if err != nil {
		return config.Params{}, err
	}

	p := config.Params{
		Radius:      viper.GetFloat64("render.radius"),
		Scale:       viper.GetFloat64("render.scale"),
		Soften:      viper.GetFloat64("render.soften"),
		Width:       viper.GetInt("render.width"),
		Height:      viper.GetInt("render.height"),
		Frames:      viper.GetInt("render.frames"),
		Supersample: viper.GetInt("render.supersample"),
		Shape:       shape,
		Repeat:      repeat,
		Noise: config.Noise{
			Algorithm:   viper.GetString("render.noise"),
			Seed:        viper.GetInt64("render.seed"),
			Octaves:     viper.GetInt("render.octaves"),
			Lacunarity:  viper.GetFloat64("render.lacunarity"),
			Persistence: viper.GetFloat64("render.persistence"),
		},
	}
	if err := p.Validate(); err != nil {
		return config.Params{}, err
	}
	return p, nil
}
