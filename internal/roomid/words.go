package roomid

var colors = []string{
	"amber", "azure", "coral", "cobalt", "crimson", "ember", "indigo", "ivory", "jade", "lilac",
	"maroon", "ochre", "olive", "pearl", "plum", "russet", "sable", "scarlet", "teal", "umber",
}

var creatures = []string{
	"badger", "bison", "crane", "gecko", "heron", "ibis", "jackal", "lemur", "lynx", "marmot",
	"newt", "ocelot", "osprey", "puffin", "quokka", "tapir", "toad", "vole", "walrus", "wren",
}

var places = []string{
	"atoll", "bay", "canyon", "cove", "delta", "dune", "fjord", "glade", "grove", "harbor",
	"island", "lagoon", "marsh", "mesa", "meadow", "prairie", "reef", "ridge", "tundra", "valley",
}

var things = []string{
	"anchor", "beacon", "compass", "kettle", "lantern", "mitten", "pebble", "quill", "ribbon", "saddle",
	"teacup", "thimble", "trumpet", "violin", "whistle", "anvil", "bucket", "candle", "ladder", "zipper",
}
