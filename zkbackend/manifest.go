package zkbackend

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark/constraint"

	"gnark-wnn/model"
	"gnark-wnn/utils"
)

// Manifest pins the artifacts generated for one model and backend.
type Manifest struct {
	Backend          string `json:"backend"`
	ModelDigest      string `json:"modelDigest"`
	KeyHash          string `json:"keyHash"`
	CircuitHash      string `json:"circuitHash"`
	VerifyingKeyHash string `json:"verifyingKeyHash"`
	NumClasses       int    `json:"numClasses"`
	NbConstraints    int    `json:"nbConstraints"`
}

func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	if _, err := Parse(m.Backend); err != nil {
		return nil, err
	}
	return &m, nil
}

func ModelDigest(m *model.Model) (string, error) {
	d, err := m.Digest()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d[:]), nil
}

// Artifacts are the serialized outputs of key generation.
type Artifacts struct {
	CCS          []byte
	ProvingKey   []byte
	VerifyingKey []byte
	Manifest     *Manifest
}

// Generate compiles m's circuit, runs setup and fingerprints everything.
func Generate(id uint8, m *model.Model) (*Artifacts, error) {
	name, err := Name(id)
	if err != nil {
		return nil, err
	}
	log := utils.Logger()

	ccs, err := Compile(id, m)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("backend", name).
		Int("constraints", ccs.GetNbConstraints()).
		Int("public", ccs.GetNbPublicVariables()).
		Int("secret", ccs.GetNbSecretVariables()).
		Msg("compiled circuit")

	pk, vk, err := Setup(id, ccs)
	if err != nil {
		return nil, err
	}
	return newArtifacts(name, m, ccs, pk, vk)
}

func newArtifacts(name string, m *model.Model, ccs constraint.ConstraintSystem, pk ProvingKey, vk VerifyingKey) (*Artifacts, error) {
	a := &Artifacts{}
	var err error
	if a.CCS, err = Marshal(ccs); err != nil {
		return nil, err
	}
	if a.ProvingKey, err = Marshal(pk); err != nil {
		return nil, err
	}
	if a.VerifyingKey, err = Marshal(vk); err != nil {
		return nil, err
	}
	digest, err := ModelDigest(m)
	if err != nil {
		return nil, err
	}
	a.Manifest = &Manifest{
		Backend:          name,
		ModelDigest:      digest,
		KeyHash:          HashBytes(a.ProvingKey),
		CircuitHash:      HashBytes(a.CCS),
		VerifyingKeyHash: HashBytes(a.VerifyingKey),
		NumClasses:       m.NumClasses,
		NbConstraints:    ccs.GetNbConstraints(),
	}
	return a, nil
}

// Artifact file names inside a keys directory.
func CCSFile(name string) string      { return "ccs." + name }
func PKFile(name string) string       { return "pk." + name }
func VKFile(name string) string       { return "vk." + name }
func ManifestFile(name string) string { return "manifest." + name + ".json" }

// Save writes the artifacts into dir, replacing earlier ones.
func (a *Artifacts) Save(dir string) error {
	manifest, err := json.MarshalIndent(a.Manifest, "", "  ")
	if err != nil {
		return err
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := a.Manifest.Backend
	files := map[string][]byte{
		CCSFile(name):      a.CCS,
		PKFile(name):       a.ProvingKey,
		VKFile(name):       a.VerifyingKey,
		ManifestFile(name): manifest,
	}
	for file, data := range files {
		if err = os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// LoadArtifacts reads the artifacts of backend name from dir. The proving key
// and constraint system are only read when withProver is set.
func LoadArtifacts(dir, name string, withProver bool) (*Artifacts, error) {
	read := func(file string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, file))
	}
	manifestData, err := read(ManifestFile(name))
	if err != nil {
		return nil, err
	}
	manifest, err := ParseManifest(manifestData)
	if err != nil {
		return nil, err
	}
	a := &Artifacts{Manifest: manifest}
	if a.VerifyingKey, err = read(VKFile(name)); err != nil {
		return nil, err
	}
	if withProver {
		if a.ProvingKey, err = read(PKFile(name)); err != nil {
			return nil, err
		}
		if a.CCS, err = read(CCSFile(name)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// ManifestBytes returns the JSON encoding of the manifest.
func (a *Artifacts) ManifestBytes() []byte {
	b, err := json.Marshal(a.Manifest)
	if err != nil {
		panic(err)
	}
	return b
}
