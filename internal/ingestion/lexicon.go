package ingestion

// techLexicon maps known technology tokens (including common aliases) to a
// canonical lowercase tag. Kept deliberately small; submitter-provided tags
// always win over detection.
var techLexicon = map[string]string{
	"go":         "go",
	"golang":     "go",
	"python":     "python",
	"py":         "python",
	"javascript": "javascript",
	"js":         "javascript",
	"typescript": "typescript",
	"ts":         "typescript",
	"java":       "java",
	"jvm":        "jvm",
	"kotlin":     "kotlin",
	"rust":       "rust",
	"c++":        "c++",
	"cpp":        "c++",
	"c#":         "c#",
	"csharp":     "c#",
	"ruby":       "ruby",
	"php":        "php",
	"swift":      "swift",
	"scala":      "scala",
	"react":      "react",
	"reactjs":    "react",
	"vue":        "vue",
	"vuejs":      "vue",
	"angular":    "angular",
	"svelte":     "svelte",
	"node":       "node.js",
	"nodejs":     "node.js",
	"node.js":    "node.js",
	"django":     "django",
	"flask":      "flask",
	"fastapi":    "fastapi",
	"rails":      "rails",
	"spring":     "spring",
	"docker":     "docker",
	"kubernetes": "kubernetes",
	"k8s":        "kubernetes",
	"terraform":  "terraform",
	"ansible":    "ansible",
	"aws":        "aws",
	"gcp":        "gcp",
	"azure":      "azure",
	"postgres":   "postgresql",
	"postgresql": "postgresql",
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"mongodb":    "mongodb",
	"redis":      "redis",
	"kafka":      "kafka",
	"rabbitmq":   "rabbitmq",
	"grpc":       "grpc",
	"graphql":    "graphql",
	"rest":       "rest",
	"linux":      "linux",
	"git":        "git",
	"bytecode":   "bytecode",
	"webassembly": "webassembly",
	"wasm":       "webassembly",
	"ml":         "machine learning",
	"tensorflow": "tensorflow",
	"pytorch":    "pytorch",
}
